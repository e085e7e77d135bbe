package permission

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/noeralma/procure-flow-organize-sub000/internal"
	permissionDatamodel "github.com/noeralma/procure-flow-organize-sub000/internal/core/datamodel/permission"
)

const (
	TypeEditForm   = "EDIT_FORM"
	TypeDeleteForm = "DELETE_FORM"

	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusExpired  = "EXPIRED"

	// DefaultGrantDuration is how long an approved grant stays active.
	DefaultGrantDuration = 24 * time.Hour

	MaxReasonLength = 500
)

// PermissionRequest is one entry in the permission ledger. Entries are never
// deleted; they form the audit trail of the edit-permission workflow.
type PermissionRequest struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"user_id"`
	AdminID        *int64     `json:"admin_id,omitempty"`
	PengadaanID    int64      `json:"pengadaan_id"`
	PermissionType string     `json:"permission_type"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason"`
	AdminResponse  *string    `json:"admin_response,omitempty"`
	RequestedAt    time.Time  `json:"requested_at"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func ValidType(permissionType string) bool {
	return permissionType == TypeEditForm || permissionType == TypeDeleteForm
}

// NewRequest builds a fresh PENDING ledger entry. The identifier is assigned
// once here and never changes.
func NewRequest(userID, pengadaanID int64, permissionType, reason string) *PermissionRequest {
	return &PermissionRequest{
		ID:             fmt.Sprintf("PR-%s", uuid.NewString()),
		UserID:         userID,
		PengadaanID:    pengadaanID,
		PermissionType: permissionType,
		Status:         StatusPending,
		Reason:         reason,
		RequestedAt:    time.Now(),
	}
}

// IsExpired reports whether the grant window has passed. Pure function of
// current time and state.
func (p *PermissionRequest) IsExpired() bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(time.Now())
}

// IsActive reports whether this entry currently grants permission.
func (p *PermissionRequest) IsActive() bool {
	return p.Status == StatusApproved && !p.IsExpired()
}

// Approve transitions PENDING -> APPROVED and opens the grant window.
// Calling it on a non-pending entry is refused so a double response cannot
// apply twice.
func (p *PermissionRequest) Approve(adminID int64, response *string, grantDuration time.Duration) error {
	if p.Status != StatusPending {
		return internal.ErrPermissionProcessed
	}
	if grantDuration <= 0 {
		grantDuration = DefaultGrantDuration
	}

	now := time.Now()
	expiresAt := now.Add(grantDuration)

	p.Status = StatusApproved
	p.AdminID = &adminID
	p.AdminResponse = response
	p.RespondedAt = &now
	p.ExpiresAt = &expiresAt
	return nil
}

// Reject transitions PENDING -> REJECTED. A non-empty response is mandatory.
func (p *PermissionRequest) Reject(adminID int64, response string) error {
	if p.Status != StatusPending {
		return internal.ErrPermissionProcessed
	}
	if strings.TrimSpace(response) == "" {
		return internal.NewValidationError("Response is required when rejecting a request", internal.ErrCodeResponseRequired)
	}

	now := time.Now()

	p.Status = StatusRejected
	p.AdminID = &adminID
	p.AdminResponse = &response
	p.RespondedAt = &now
	return nil
}

// Revoke forces an active grant to EXPIRED immediately.
func (p *PermissionRequest) Revoke(adminID int64, reason string) error {
	if !p.IsActive() {
		return internal.ErrPermissionNotActive
	}

	now := time.Now()
	note := fmt.Sprintf("Revoked: %s", reason)

	p.Status = StatusExpired
	p.AdminID = &adminID
	p.AdminResponse = &note
	p.ExpiresAt = &now
	return nil
}

func ToDataModel(p *PermissionRequest) *permissionDatamodel.PermissionRequest {
	return &permissionDatamodel.PermissionRequest{
		ID:             p.ID,
		UserID:         p.UserID,
		AdminID:        p.AdminID,
		PengadaanID:    p.PengadaanID,
		PermissionType: p.PermissionType,
		Status:         p.Status,
		Reason:         p.Reason,
		AdminResponse:  p.AdminResponse,
		RequestedAt:    p.RequestedAt,
		RespondedAt:    p.RespondedAt,
		ExpiresAt:      p.ExpiresAt,
	}
}

func FromDataModel(p *permissionDatamodel.PermissionRequest) *PermissionRequest {
	return &PermissionRequest{
		ID:             p.ID,
		UserID:         p.UserID,
		AdminID:        p.AdminID,
		PengadaanID:    p.PengadaanID,
		PermissionType: p.PermissionType,
		Status:         p.Status,
		Reason:         p.Reason,
		AdminResponse:  p.AdminResponse,
		RequestedAt:    p.RequestedAt,
		RespondedAt:    p.RespondedAt,
		ExpiresAt:      p.ExpiresAt,
	}
}

func FromDataModelSlice(requests []*permissionDatamodel.PermissionRequest) []*PermissionRequest {
	result := make([]*PermissionRequest, len(requests))
	for i, p := range requests {
		result[i] = FromDataModel(p)
	}
	return result
}
