package permission

import "time"

// PermissionRequest is the persistence model for the permission ledger.
// A partial unique index on (user_id, pengadaan_id, permission_type) where
// status = 'PENDING' backs the duplicate-pending invariant; see migrations.
type PermissionRequest struct {
	ID             string     `gorm:"primaryKey"`
	UserID         int64      `gorm:"column:user_id;not null;index"`
	AdminID        *int64     `gorm:"column:admin_id"`
	PengadaanID    int64      `gorm:"column:pengadaan_id;not null;index"`
	PermissionType string     `gorm:"column:permission_type;not null"`
	Status         string     `gorm:"column:status;default:PENDING;index"`
	Reason         string     `gorm:"column:reason;not null"`
	AdminResponse  *string    `gorm:"column:admin_response"`
	RequestedAt    time.Time  `gorm:"column:requested_at"`
	RespondedAt    *time.Time `gorm:"column:responded_at"`
	ExpiresAt      *time.Time `gorm:"column:expires_at"`
}

func (PermissionRequest) TableName() string {
	return "permission_requests"
}
