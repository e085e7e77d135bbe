package pengadaan

import "time"

// Pengadaan is the persistence model for procurement records.
type Pengadaan struct {
	ID          int64      `gorm:"primaryKey"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"column:description"`
	Category    string     `gorm:"column:category"`
	Vendor      string     `gorm:"column:vendor"`
	AmountIDR   int64      `gorm:"column:amount_idr;not null"`
	Status      string     `gorm:"column:status;default:draft"`
	IsEditable  bool       `gorm:"column:is_editable;default:true"`
	CreatedBy   int64      `gorm:"column:created_by;not null"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	SubmittedBy *int64     `gorm:"column:submitted_by"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (Pengadaan) TableName() string {
	return "pengadaans"
}

// EditLog is one append-only entry in a record's edit history.
type EditLog struct {
	ID          int64     `gorm:"primaryKey"`
	PengadaanID int64     `gorm:"column:pengadaan_id;not null;index"`
	EditedBy    int64     `gorm:"column:edited_by;not null"`
	Note        string    `gorm:"column:note"`
	EditedAt    time.Time `gorm:"column:edited_at"`
}

func (EditLog) TableName() string {
	return "pengadaan_edit_logs"
}
