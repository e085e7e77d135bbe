package permission

import (
	"context"
	"log/slog"
	"time"

	"github.com/noeralma/procure-flow-organize-sub000/internal"
	"github.com/noeralma/procure-flow-organize-sub000/internal/core/events"
	"github.com/noeralma/procure-flow-organize-sub000/internal/user"
)

// Repository defines the ledger data access. Conditional updates are the
// concurrency primitive: UpdateIfStatus must persist only when the stored
// status still matches expected and report whether it applied.
type Repository interface {
	Create(req *PermissionRequest) error
	GetByID(id string) (*PermissionRequest, error)
	FindPending(userID, pengadaanID int64, permissionType string) (*PermissionRequest, error)
	FindActiveGrant(userID, pengadaanID int64, permissionType string, now time.Time) (*PermissionRequest, error)
	UpdateIfStatus(req *PermissionRequest, expectedStatus string) (bool, error)
	ListByUser(userID int64, limit, offset int) ([]*PermissionRequest, int64, error)
	ListByStatus(status string, limit, offset int) ([]*PermissionRequest, int64, error)
	ExpireStale(now time.Time) (int64, error)
}

// UserDirectory resolves accounts for precondition checks and enrichment.
type UserDirectory interface {
	GetByID(userID int64) (*user.User, error)
}

// PengadaanDirectory resolves target records for precondition checks and
// enrichment. Implemented by the pengadaan service.
type PengadaanDirectory interface {
	GetSummary(pengadaanID int64) (*PengadaanSummary, error)
}

// Service orchestrates the permission workflow. It is the only component
// that creates or terminally mutates ledger entries.
type Service struct {
	repo          Repository
	users         UserDirectory
	pengadaans    PengadaanDirectory
	bus           *events.EventBus
	grantDuration time.Duration
	logger        *slog.Logger
}

func NewService(repo Repository, users UserDirectory, pengadaans PengadaanDirectory, bus *events.EventBus, grantDuration time.Duration, logger *slog.Logger) *Service {
	if grantDuration <= 0 {
		grantDuration = DefaultGrantDuration
	}
	return &Service{
		repo:          repo,
		users:         users,
		pengadaans:    pengadaans,
		bus:           bus,
		grantDuration: grantDuration,
		logger:        logger,
	}
}

// SetPengadaanDirectory attaches the record lookup after construction.
// The permission and pengadaan services reference each other, so the
// composition root wires this side second.
func (s *Service) SetPengadaanDirectory(d PengadaanDirectory) {
	s.pengadaans = d
}

// RequestPermission opens a new PENDING ledger entry after checking the
// duplicate-pending and active-grant invariants, in that order.
func (s *Service) RequestPermission(userID, pengadaanID int64, permissionType, reason string) (*PermissionRequest, error) {
	dto := CreatePermissionDTO{PengadaanID: pengadaanID, PermissionType: permissionType, Reason: reason}
	if err := dto.Validate(); err != nil {
		s.logger.Error("permission request validation failed", "error", err, "user_id", userID)
		return nil, err
	}
	permissionType = dto.PermissionType

	if _, err := s.users.GetByID(userID); err != nil {
		s.logger.Error("permission request for unknown user", "error", err, "user_id", userID)
		return nil, internal.ErrUserNotFound
	}

	if _, err := s.pengadaans.GetSummary(pengadaanID); err != nil {
		s.logger.Error("permission request for unknown pengadaan", "error", err, "pengadaan_id", pengadaanID)
		return nil, internal.ErrPengadaanNotFound
	}

	if existing, err := s.repo.FindPending(userID, pengadaanID, permissionType); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Warn("duplicate pending permission request",
			"user_id", userID,
			"pengadaan_id", pengadaanID,
			"permission_type", permissionType)
		return nil, internal.ErrDuplicatePending
	}

	if active, err := s.repo.FindActiveGrant(userID, pengadaanID, permissionType, time.Now()); err != nil {
		return nil, err
	} else if active != nil {
		s.logger.Warn("permission request while grant still active",
			"user_id", userID,
			"pengadaan_id", pengadaanID,
			"permission_type", permissionType)
		return nil, internal.ErrPermissionActive
	}

	req := NewRequest(userID, pengadaanID, permissionType, reason)
	if err := s.repo.Create(req); err != nil {
		// the partial unique index closes the find-then-insert race;
		// a violation is the same Conflict as the explicit check
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeDuplicatePending {
			return nil, err
		}
		s.logger.Error("failed to create permission request", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("permission request created",
		"permission_id", req.ID,
		"user_id", userID,
		"pengadaan_id", pengadaanID,
		"permission_type", permissionType)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPermissionRequestedEvent(req.ID, userID, pengadaanID, permissionType))
	}

	return req, nil
}

// RespondToRequest records an admin decision. The update is conditioned on
// the stored status still being PENDING; a lost race surfaces as Conflict.
func (s *Service) RespondToRequest(permissionID string, adminID int64, status, response string) (*PermissionRequest, error) {
	dto := RespondPermissionDTO{Status: status, Response: response}
	if err := dto.Validate(); err != nil {
		s.logger.Error("permission response validation failed", "error", err, "permission_id", permissionID)
		return nil, err
	}

	admin, err := s.users.GetByID(adminID)
	if err != nil {
		s.logger.Error("permission response by unknown admin", "error", err, "admin_id", adminID)
		return nil, internal.ErrUserNotFound
	}
	if !admin.IsAdmin() {
		s.logger.Warn("permission response denied: not an admin", "admin_id", adminID, "role", admin.Role)
		return nil, internal.NewForbiddenError("Admin role required", internal.ErrCodeAdminRequired)
	}

	req, err := s.repo.GetByID(permissionID)
	if err != nil {
		return nil, err
	}

	if status == ResponseStatusApproved {
		var note *string
		if response != "" {
			note = &response
		}
		if err := req.Approve(adminID, note, s.grantDuration); err != nil {
			return nil, err
		}
	} else {
		if err := req.Reject(adminID, response); err != nil {
			return nil, err
		}
	}

	applied, err := s.repo.UpdateIfStatus(req, StatusPending)
	if err != nil {
		s.logger.Error("failed to persist permission response", "error", err, "permission_id", permissionID)
		return nil, err
	}
	if !applied {
		s.logger.Warn("permission response lost the race", "permission_id", permissionID)
		return nil, internal.ErrPermissionProcessed
	}

	s.logger.Info("permission request responded",
		"permission_id", permissionID,
		"admin_id", adminID,
		"status", req.Status)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPermissionRespondedEvent(req.ID, adminID, req.Status, req.UserID, req.PengadaanID))
	}

	return req, nil
}

// HasEditPermission reports whether an active EDIT_FORM grant exists. Pure read.
func (s *Service) HasEditPermission(userID, pengadaanID int64) (bool, error) {
	grant, err := s.repo.FindActiveGrant(userID, pengadaanID, TypeEditForm, time.Now())
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// HasDeletePermission reports whether an active DELETE_FORM grant exists.
func (s *Service) HasDeletePermission(userID, pengadaanID int64) (bool, error) {
	grant, err := s.repo.FindActiveGrant(userID, pengadaanID, TypeDeleteForm, time.Now())
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// RevokePermission forces an active grant to expire immediately.
func (s *Service) RevokePermission(permissionID string, adminID int64, reason string) (*PermissionRequest, error) {
	dto := RevokePermissionDTO{Reason: reason}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	admin, err := s.users.GetByID(adminID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if !admin.IsAdmin() {
		return nil, internal.NewForbiddenError("Admin role required", internal.ErrCodeAdminRequired)
	}

	req, err := s.repo.GetByID(permissionID)
	if err != nil {
		return nil, err
	}

	if err := req.Revoke(adminID, reason); err != nil {
		return nil, err
	}

	applied, err := s.repo.UpdateIfStatus(req, StatusApproved)
	if err != nil {
		s.logger.Error("failed to persist permission revoke", "error", err, "permission_id", permissionID)
		return nil, err
	}
	if !applied {
		return nil, internal.ErrPermissionNotActive
	}

	s.logger.Info("permission revoked",
		"permission_id", permissionID,
		"admin_id", adminID,
		"reason", reason)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPermissionRevokedEvent(req.ID, adminID, reason))
	}

	return req, nil
}

// CleanupExpiredPermissions demotes every stale APPROVED grant to EXPIRED in
// one batch. Idempotent: an immediate second run touches nothing.
func (s *Service) CleanupExpiredPermissions() (int64, error) {
	count, err := s.repo.ExpireStale(time.Now())
	if err != nil {
		s.logger.Error("permission cleanup sweep failed", "error", err)
		return 0, err
	}

	if count > 0 {
		s.logger.Info("permission cleanup sweep finished", "cleaned_count", count)
	}
	return count, nil
}

// BulkRespond applies one decision to many requests; each entry is processed
// independently and failures are reported per item.
func (s *Service) BulkRespond(permissionIDs []string, adminID int64, status, response string) (*BulkRespondResult, error) {
	dto := BulkRespondDTO{PermissionIDs: permissionIDs, Status: status, Response: response}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	result := &BulkRespondResult{
		Results: make([]PermissionResponse, 0, len(permissionIDs)),
		Errors:  make([]BulkItemError, 0),
	}

	for _, id := range permissionIDs {
		req, err := s.RespondToRequest(id, adminID, status, response)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{
				PermissionID: id,
				Error:        err.Error(),
			})
			continue
		}
		result.Successful++
		result.Results = append(result.Results, req.ToResponse())
	}

	s.logger.Info("bulk permission response finished",
		"admin_id", adminID,
		"successful", result.Successful,
		"failed", result.Failed)

	return result, nil
}

// ListUserRequests returns the caller's own ledger entries, newest first.
func (s *Service) ListUserRequests(userID int64, page, limit int) (*PermissionListResponse, error) {
	page, limit = normalizePage(page, limit)

	requests, total, err := s.repo.ListByUser(userID, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list user permission requests", "error", err, "user_id", userID)
		return nil, err
	}

	resp := &PermissionListResponse{
		Permissions: make([]PermissionResponse, 0, len(requests)),
		Page:        page,
		Limit:       limit,
		Total:       total,
	}
	for _, req := range requests {
		resp.Permissions = append(resp.Permissions, req.ToResponse())
	}
	return resp, nil
}

// ListPendingRequests returns the admin review queue, oldest first, enriched
// with requester and record summaries.
func (s *Service) ListPendingRequests(page, limit int) (*PendingListResponse, error) {
	page, limit = normalizePage(page, limit)

	requests, total, err := s.repo.ListByStatus(StatusPending, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list pending permission requests", "error", err)
		return nil, err
	}

	resp := &PendingListResponse{
		Permissions: make([]PermissionWithRequester, 0, len(requests)),
		Page:        page,
		Limit:       limit,
		Total:       total,
	}

	for _, req := range requests {
		entry := PermissionWithRequester{PermissionResponse: req.ToResponse()}

		if u, err := s.users.GetByID(req.UserID); err == nil {
			summary := u.ToSummary()
			entry.Requester = &summary
		}
		if rec, err := s.pengadaans.GetSummary(req.PengadaanID); err == nil {
			entry.Pengadaan = rec
		}

		resp.Permissions = append(resp.Permissions, entry)
	}

	return resp, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
