package postgres

import (
	"time"

	pengadaanDatamodel "github.com/noeralma/procure-flow-organize-sub000/internal/core/datamodel/pengadaan"
	"github.com/noeralma/procure-flow-organize-sub000/internal/pengadaan"
	"gorm.io/gorm"
)

// PengadaanRepository implements the pengadaan.Repository interface using GORM
type PengadaanRepository struct {
	db *gorm.DB
}

// NewPengadaanRepository creates a new pengadaan repository
func NewPengadaanRepository(db *gorm.DB) pengadaan.Repository {
	return &PengadaanRepository{db: db}
}

func (r *PengadaanRepository) Create(p *pengadaan.Pengadaan) error {
	record := pengadaan.ToDataModel(p)
	if err := r.db.Create(record).Error; err != nil {
		return err
	}
	p.ID = record.ID
	return nil
}

func (r *PengadaanRepository) GetByID(id int64) (*pengadaan.Pengadaan, error) {
	var record pengadaanDatamodel.Pengadaan
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pengadaan.ErrNotFound
		}
		return nil, err
	}
	return pengadaan.FromDataModel(&record), nil
}

// GetByCreator retrieves records created by a user, newest first.
func (r *PengadaanRepository) GetByCreator(userID int64, limit, offset int) ([]*pengadaan.Pengadaan, int64, error) {
	var records []*pengadaanDatamodel.Pengadaan
	var total int64

	if err := r.db.Model(&pengadaanDatamodel.Pengadaan{}).
		Where("created_by = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("created_by = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return pengadaan.FromDataModelSlice(records), total, nil
}

func (r *PengadaanRepository) GetAll(limit, offset int) ([]*pengadaan.Pengadaan, int64, error) {
	var records []*pengadaanDatamodel.Pengadaan
	var total int64

	if err := r.db.Model(&pengadaanDatamodel.Pengadaan{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return pengadaan.FromDataModelSlice(records), total, nil
}

// Search matches the query against title and vendor, case-insensitively.
func (r *PengadaanRepository) Search(query string, limit, offset int) ([]*pengadaan.Pengadaan, int64, error) {
	var records []*pengadaanDatamodel.Pengadaan
	var total int64

	pattern := "%" + query + "%"
	base := r.db.Model(&pengadaanDatamodel.Pengadaan{}).
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(vendor) LIKE LOWER(?)", pattern, pattern)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(vendor) LIKE LOWER(?)", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return pengadaan.FromDataModelSlice(records), total, nil
}

func (r *PengadaanRepository) Update(p *pengadaan.Pengadaan) error {
	p.UpdatedAt = time.Now()
	return r.db.Save(pengadaan.ToDataModel(p)).Error
}

func (r *PengadaanRepository) Delete(id int64) error {
	result := r.db.Where("id = ?", id).Delete(&pengadaanDatamodel.Pengadaan{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pengadaan.ErrNotFound
	}
	return nil
}

func (r *PengadaanRepository) AppendEditLog(log *pengadaan.EditLog) error {
	record := &pengadaanDatamodel.EditLog{
		PengadaanID: log.PengadaanID,
		EditedBy:    log.EditedBy,
		Note:        log.Note,
		EditedAt:    log.EditedAt,
	}
	if err := r.db.Create(record).Error; err != nil {
		return err
	}
	log.ID = record.ID
	return nil
}

func (r *PengadaanRepository) EditLogs(pengadaanID int64) ([]*pengadaan.EditLog, error) {
	var records []*pengadaanDatamodel.EditLog
	err := r.db.Where("pengadaan_id = ?", pengadaanID).
		Order("edited_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	logs := make([]*pengadaan.EditLog, len(records))
	for i, rec := range records {
		logs[i] = &pengadaan.EditLog{
			ID:          rec.ID,
			PengadaanID: rec.PengadaanID,
			EditedBy:    rec.EditedBy,
			Note:        rec.Note,
			EditedAt:    rec.EditedAt,
		}
	}
	return logs, nil
}
