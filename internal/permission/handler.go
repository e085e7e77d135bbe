package permission

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/noeralma/procure-flow-organize-sub000/internal/auth"
	"github.com/noeralma/procure-flow-organize-sub000/internal/transport"
	"github.com/noeralma/procure-flow-organize-sub000/pkg/logger"
)

type ServiceAPI interface {
	RequestPermission(userID, pengadaanID int64, permissionType, reason string) (*PermissionRequest, error)
	RespondToRequest(permissionID string, adminID int64, status, response string) (*PermissionRequest, error)
	HasEditPermission(userID, pengadaanID int64) (bool, error)
	RevokePermission(permissionID string, adminID int64, reason string) (*PermissionRequest, error)
	CleanupExpiredPermissions() (int64, error)
	BulkRespond(permissionIDs []string, adminID int64, status, response string) (*BulkRespondResult, error)
	ListUserRequests(userID int64, page, limit int) (*PermissionListResponse, error)
	ListPendingRequests(page, limit int) (*PendingListResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// CreatePermission handles POST /permissions
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePermission: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.RequestPermission(user.ID, dto.PengadaanID, dto.PermissionType, dto.Reason)
	if err != nil {
		h.Logger.Error("CreatePermission: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreatePermission: request created",
		"permission_id", req.ID,
		"user_id", user.ID,
		"pengadaan_id", dto.PengadaanID)

	h.WriteJSON(w, http.StatusCreated, req.ToResponse())
}

// ListMyPermissions handles GET /permissions/my
func (h *Handler) ListMyPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit := parsePagination(r)

	resp, err := h.Service.ListUserRequests(user.ID, page, limit)
	if err != nil {
		h.Logger.Error("ListMyPermissions: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// ListPendingPermissions handles GET /permissions/pending (admin)
func (h *Handler) ListPendingPermissions(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	resp, err := h.Service.ListPendingRequests(page, limit)
	if err != nil {
		h.Logger.Error("ListPendingPermissions: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// RespondPermission handles PATCH /permissions/{id}/respond (admin)
func (h *Handler) RespondPermission(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	permissionID := chi.URLParam(r, "id")
	if permissionID == "" {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	var dto RespondPermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RespondPermission: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.RespondToRequest(permissionID, user.ID, dto.Status, dto.Response)
	if err != nil {
		h.Logger.Error("RespondPermission: service error", "error", err, "permission_id", permissionID, "admin_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("RespondPermission: request processed",
		"permission_id", permissionID,
		"admin_id", user.ID,
		"status", req.Status)

	h.WriteJSON(w, http.StatusOK, req.ToResponse())
}

// RevokePermission handles PATCH /permissions/{id}/revoke (admin)
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	permissionID := chi.URLParam(r, "id")
	if permissionID == "" {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	var dto RevokePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RevokePermission: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.RevokePermission(permissionID, user.ID, dto.Reason)
	if err != nil {
		h.Logger.Error("RevokePermission: service error", "error", err, "permission_id", permissionID, "admin_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("RevokePermission: permission revoked", "permission_id", permissionID, "admin_id", user.ID)

	h.WriteJSON(w, http.StatusOK, req.ToResponse())
}

// BulkRespondPermissions handles POST /permissions/bulk-respond (admin)
func (h *Handler) BulkRespondPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto BulkRespondDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("BulkRespondPermissions: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BulkRespond(dto.PermissionIDs, user.ID, dto.Status, dto.Response)
	if err != nil {
		h.Logger.Error("BulkRespondPermissions: service error", "error", err, "admin_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// CleanupPermissions handles POST /permissions/cleanup (admin)
func (h *Handler) CleanupPermissions(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.CleanupExpiredPermissions()
	if err != nil {
		h.Logger.Error("CleanupPermissions: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CleanupResult{CleanedCount: count})
}

// CheckPermission handles GET /permissions/check?pengadaan_id=
func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pengadaanIDStr := r.URL.Query().Get("pengadaan_id")
	pengadaanID, err := strconv.ParseInt(pengadaanIDStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pengadaan_id")
		return
	}

	if user.IsAdmin() {
		h.WriteJSON(w, http.StatusOK, CheckPermissionResponse{HasPermission: true, IsAdmin: true})
		return
	}

	granted, err := h.Service.HasEditPermission(user.ID, pengadaanID)
	if err != nil {
		h.Logger.Error("CheckPermission: service error", "error", err, "user_id", user.ID, "pengadaan_id", pengadaanID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CheckPermissionResponse{HasPermission: granted, IsAdmin: false})
}

func parsePagination(r *http.Request) (int, int) {
	page := 1
	limit := 20

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	return page, limit
}
