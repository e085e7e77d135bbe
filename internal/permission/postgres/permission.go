package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/noeralma/procure-flow-organize-sub000/internal"
	permissionDatamodel "github.com/noeralma/procure-flow-organize-sub000/internal/core/datamodel/permission"
	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
	"gorm.io/gorm"
)

// PermissionRepository implements permission.Repository using GORM.
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.Repository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(req *permission.PermissionRequest) error {
	err := r.db.Create(permission.ToDataModel(req)).Error
	if err != nil && isUniqueViolation(err) {
		// partial unique index on (user_id, pengadaan_id, permission_type)
		// where status = PENDING
		return internal.ErrDuplicatePending
	}
	return err
}

func (r *PermissionRepository) GetByID(id string) (*permission.PermissionRequest, error) {
	var req permissionDatamodel.PermissionRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrPermissionNotFound
		}
		return nil, err
	}
	return permission.FromDataModel(&req), nil
}

func (r *PermissionRepository) FindPending(userID, pengadaanID int64, permissionType string) (*permission.PermissionRequest, error) {
	var req permissionDatamodel.PermissionRequest
	err := r.db.
		Where("user_id = ? AND pengadaan_id = ? AND permission_type = ? AND status = ?",
			userID, pengadaanID, permissionType, permission.StatusPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return permission.FromDataModel(&req), nil
}

func (r *PermissionRepository) FindActiveGrant(userID, pengadaanID int64, permissionType string, now time.Time) (*permission.PermissionRequest, error) {
	var req permissionDatamodel.PermissionRequest
	err := r.db.
		Where("user_id = ? AND pengadaan_id = ? AND permission_type = ? AND status = ? AND expires_at > ?",
			userID, pengadaanID, permissionType, permission.StatusApproved, now).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return permission.FromDataModel(&req), nil
}

// UpdateIfStatus persists the entry only if the stored status still matches
// expected. Zero rows affected means another writer won the race.
func (r *PermissionRepository) UpdateIfStatus(req *permission.PermissionRequest, expectedStatus string) (bool, error) {
	dm := permission.ToDataModel(req)

	result := r.db.Model(&permissionDatamodel.PermissionRequest{}).
		Where("id = ? AND status = ?", dm.ID, expectedStatus).
		Updates(map[string]interface{}{
			"status":         dm.Status,
			"admin_id":       dm.AdminID,
			"admin_response": dm.AdminResponse,
			"responded_at":   dm.RespondedAt,
			"expires_at":     dm.ExpiresAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PermissionRepository) ListByUser(userID int64, limit, offset int) ([]*permission.PermissionRequest, int64, error) {
	var total int64
	if err := r.db.Model(&permissionDatamodel.PermissionRequest{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*permissionDatamodel.PermissionRequest
	err := r.db.
		Where("user_id = ?", userID).
		Order("requested_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return permission.FromDataModelSlice(rows), total, nil
}

func (r *PermissionRepository) ListByStatus(status string, limit, offset int) ([]*permission.PermissionRequest, int64, error) {
	var total int64
	if err := r.db.Model(&permissionDatamodel.PermissionRequest{}).
		Where("status = ?", status).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*permissionDatamodel.PermissionRequest
	err := r.db.
		Where("status = ?", status).
		Order("requested_at ASC"). // FIFO for the review queue
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return permission.FromDataModelSlice(rows), total, nil
}

// ExpireStale flips every overdue APPROVED grant to EXPIRED in one batch.
func (r *PermissionRepository) ExpireStale(now time.Time) (int64, error) {
	result := r.db.Model(&permissionDatamodel.PermissionRequest{}).
		Where("status = ? AND expires_at <= ?", permission.StatusApproved, now).
		Update("status", permission.StatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
