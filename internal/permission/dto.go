package permission

import (
	"strings"
	"time"

	"github.com/noeralma/procure-flow-organize-sub000/internal"
	"github.com/noeralma/procure-flow-organize-sub000/internal/core/common/validation"
	"github.com/noeralma/procure-flow-organize-sub000/internal/user"
)

// CreatePermissionDTO is the request payload for opening a new permission request.
type CreatePermissionDTO struct {
	PengadaanID    int64  `json:"pengadaan_id"`
	PermissionType string `json:"permission_type,omitempty"`
	Reason         string `json:"reason"`
}

func (dto *CreatePermissionDTO) Validate() *internal.AppError {
	if dto.PengadaanID == 0 {
		return internal.NewValidationFieldError("pengadaan_id", "pengadaan_id is required", internal.ErrCodeValidationFailed)
	}
	if dto.PermissionType == "" {
		dto.PermissionType = TypeEditForm
	}
	if !ValidType(dto.PermissionType) {
		return internal.NewValidationError("permission_type must be EDIT_FORM or DELETE_FORM", internal.ErrCodeInvalidPermissionType)
	}
	if strings.TrimSpace(dto.Reason) == "" {
		return internal.NewValidationError("Reason is required", internal.ErrCodeReasonRequired)
	}
	if appErr := validation.ValidatePermissionReason(dto.Reason); appErr != nil {
		return appErr
	}
	return nil
}

// RespondPermissionDTO carries an admin's decision on a pending request.
type RespondPermissionDTO struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
}

const (
	ResponseStatusApproved = "approved"
	ResponseStatusRejected = "rejected"
)

func (dto *RespondPermissionDTO) Validate() *internal.AppError {
	switch dto.Status {
	case ResponseStatusApproved:
	case ResponseStatusRejected:
		if strings.TrimSpace(dto.Response) == "" {
			return internal.NewValidationError("Response is required when rejecting a request", internal.ErrCodeResponseRequired)
		}
	default:
		return internal.NewValidationError("status must be either 'approved' or 'rejected'", internal.ErrCodeInvalidResponseStatus)
	}
	return nil
}

// RevokePermissionDTO carries the justification for revoking an active grant.
type RevokePermissionDTO struct {
	Reason string `json:"reason"`
}

func (dto *RevokePermissionDTO) Validate() *internal.AppError {
	if strings.TrimSpace(dto.Reason) == "" {
		return internal.NewValidationError("Reason is required when revoking a permission", internal.ErrCodeReasonRequired)
	}
	return nil
}

// BulkRespondDTO applies one decision to many pending requests at once.
type BulkRespondDTO struct {
	PermissionIDs []string `json:"permission_ids"`
	Status        string   `json:"status"`
	Response      string   `json:"response,omitempty"`
}

func (dto *BulkRespondDTO) Validate() *internal.AppError {
	if len(dto.PermissionIDs) == 0 {
		return internal.NewValidationFieldError("permission_ids", "permission_ids must not be empty", internal.ErrCodeValidationFailed)
	}
	respond := RespondPermissionDTO{Status: dto.Status, Response: dto.Response}
	return respond.Validate()
}

// PermissionResponse is the only shape of a ledger entry that crosses the API
// boundary.
type PermissionResponse struct {
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
	IsExpired      bool       `json:"is_expired"`
}

func (p *PermissionRequest) ToResponse() PermissionResponse {
	return PermissionResponse{
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
		IsExpired:      p.IsExpired(),
	}
}

// PengadaanSummary is the compact record shape embedded in enriched listings.
type PengadaanSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// PermissionWithRequester enriches a pending entry with requester and record
// summaries for the admin review queue.
type PermissionWithRequester struct {
	PermissionResponse
	Requester *user.UserSummary `json:"requester,omitempty"`
	Pengadaan *PengadaanSummary `json:"pengadaan,omitempty"`
}

// PermissionListResponse is a paginated ledger listing.
type PermissionListResponse struct {
	Permissions []PermissionResponse `json:"permissions"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	Total       int64                `json:"total"`
}

// PendingListResponse is the enriched admin review queue.
type PendingListResponse struct {
	Permissions []PermissionWithRequester `json:"permissions"`
	Page        int                       `json:"page"`
	Limit       int                       `json:"limit"`
	Total       int64                     `json:"total"`
}

// CheckPermissionResponse answers "may this user edit this record right now".
type CheckPermissionResponse struct {
	HasPermission bool `json:"has_permission"`
	IsAdmin       bool `json:"is_admin"`
}

// BulkItemError reports one failed entry of a bulk response.
type BulkItemError struct {
	PermissionID string `json:"permission_id"`
	Error        string `json:"error"`
}

// BulkRespondResult aggregates per-item outcomes; partial failure is expected
// and never aborts the batch.
type BulkRespondResult struct {
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Results    []PermissionResponse `json:"results"`
	Errors     []BulkItemError      `json:"errors"`
}

// CleanupResult reports how many stale grants a sweep demoted.
type CleanupResult struct {
	CleanedCount int64 `json:"cleaned_count"`
}
