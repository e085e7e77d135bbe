package pengadaan

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
	CreatePengadaan(userID int64, dto CreatePengadaanDTO) (*Pengadaan, error)
	GetPengadaanByID(id, userID int64, role string) (*Pengadaan, error)
	ListPengadaans(userID int64, role string, limit, offset int) (*PengadaanListResponse, error)
	SearchPengadaans(query string, limit, offset int) (*PengadaanListResponse, error)
	UpdatePengadaan(id, userID int64, role string, dto UpdatePengadaanDTO) (*Pengadaan, error)
	DeletePengadaan(id, userID int64, role string) error
	SubmitPengadaan(id, userID int64, role string) (*Pengadaan, error)
	GetEditLogs(pengadaanID, userID int64, role string) ([]*EditLog, error)
	ExportCSV(userID int64, role string) ([]byte, error)
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

func (h *Handler) CreatePengadaan(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreatePengadaanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePengadaan: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.Service.CreatePengadaan(user.ID, dto)
	if err != nil {
		h.Logger.Error("CreatePengadaan: service error", "error", err, "user_id", user.ID)
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) GetPengadaan(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pengadaan ID")
		return
	}

	record, err := h.Service.GetPengadaanByID(id, user.ID, user.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) ListPengadaans(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := parseLimitOffset(r)

	resp, err := h.Service.ListPengadaans(user.ID, user.Role, limit, offset)
	if err != nil {
		h.Logger.Error("ListPengadaans: service error", "error", err, "user_id", user.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list pengadaans")
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) SearchPengadaans(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.WriteError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit, offset := parseLimitOffset(r)

	resp, err := h.Service.SearchPengadaans(query, limit, offset)
	if err != nil {
		h.Logger.Error("SearchPengadaans: service error", "error", err, "query", query)
		h.WriteError(w, http.StatusInternalServerError, "search failed")
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdatePengadaan(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pengadaan ID")
		return
	}

	var dto UpdatePengadaanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdatePengadaan: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.Service.UpdatePengadaan(id, user.ID, user.Role, dto)
	if err != nil {
		h.Logger.Error("UpdatePengadaan: service error", "error", err, "pengadaan_id", id, "user_id", user.ID)
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) DeletePengadaan(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pengadaan ID")
		return
	}

	if err := h.Service.DeletePengadaan(id, user.ID, user.Role); err != nil {
		h.Logger.Error("DeletePengadaan: service error", "error", err, "pengadaan_id", id, "user_id", user.ID)
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitPengadaan(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pengadaan ID")
		return
	}

	record, err := h.Service.SubmitPengadaan(id, user.ID, user.Role)
	if err != nil {
		h.Logger.Error("SubmitPengadaan: service error", "error", err, "pengadaan_id", id, "user_id", user.ID)
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) GetEditLogs(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pengadaan ID")
		return
	}

	logs, err := h.Service.GetEditLogs(id, user.ID, user.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"edit_logs": logs})
}

func (h *Handler) ExportPengadaans(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := h.Service.ExportCSV(user.ID, user.Role)
	if err != nil {
		h.Logger.Error("ExportPengadaans: service error", "error", err, "user_id", user.ID)
		h.WriteError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="pengadaan-export.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("ExportPengadaans: failed to write response", "error", err)
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		h.WriteError(w, http.StatusNotFound, "pengadaan not found")
	case ErrEditDenied:
		h.WriteError(w, http.StatusForbidden, "you are not allowed to modify this pengadaan")
	case ErrNotEditable:
		h.WriteError(w, http.StatusForbidden, "pengadaan is not editable")
	case ErrAlreadySubmitted:
		h.WriteError(w, http.StatusConflict, "pengadaan already submitted")
	default:
		h.HandleServiceError(w, err)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseLimitOffset(r *http.Request) (int, int) {
	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
