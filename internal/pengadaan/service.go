package pengadaan

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"strconv"
	"time"

	"github.com/noeralma/procure-flow-organize-sub000/internal/core/events"
	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
)

// Repository defines the data access methods for pengadaan records
type Repository interface {
	Create(p *Pengadaan) error
	GetByID(id int64) (*Pengadaan, error)
	GetByCreator(userID int64, limit, offset int) ([]*Pengadaan, int64, error)
	GetAll(limit, offset int) ([]*Pengadaan, int64, error)
	Search(query string, limit, offset int) ([]*Pengadaan, int64, error)
	Update(p *Pengadaan) error
	Delete(id int64) error
	AppendEditLog(log *EditLog) error
	EditLogs(pengadaanID int64) ([]*EditLog, error)
}

// EditGate is the decision point consulted before any mutation by a non-admin.
type EditGate interface {
	CanEdit(actorUserID int64, actorRole string, record permission.Record) (bool, error)
	CanDelete(actorUserID int64, actorRole string, record permission.Record) (bool, error)
}

// Service handles pengadaan business logic.
type Service struct {
	repo   Repository
	gate   EditGate
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, gate EditGate, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		bus:    bus,
		logger: logger,
	}
}

func (s *Service) CreatePengadaan(userID int64, dto CreatePengadaanDTO) (*Pengadaan, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("pengadaan validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	record := NewPengadaan(userID, dto)
	if err := s.repo.Create(record); err != nil {
		s.logger.Error("failed to create pengadaan", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("pengadaan created",
		"pengadaan_id", record.ID,
		"user_id", userID,
		"amount", dto.AmountIDR)

	return record, nil
}

func (s *Service) GetPengadaanByID(id, userID int64, role string) (*Pengadaan, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	// non-admins only see their own records
	if role != "admin" && record.CreatedBy != userID {
		s.logger.Warn("unauthorized access to pengadaan", "pengadaan_id", id, "user_id", userID)
		return nil, ErrEditDenied
	}

	return record, nil
}

// GetSummary satisfies the permission workflow's record lookup.
func (s *Service) GetSummary(pengadaanID int64) (*permission.PengadaanSummary, error) {
	record, err := s.repo.GetByID(pengadaanID)
	if err != nil {
		return nil, ErrNotFound
	}
	return &permission.PengadaanSummary{ID: record.ID, Title: record.Title}, nil
}

func (s *Service) ListPengadaans(userID int64, role string, limit, offset int) (*PengadaanListResponse, error) {
	var (
		records []*Pengadaan
		total   int64
		err     error
	)

	if role == "admin" {
		records, total, err = s.repo.GetAll(limit, offset)
	} else {
		records, total, err = s.repo.GetByCreator(userID, limit, offset)
	}
	if err != nil {
		s.logger.Error("failed to list pengadaans", "error", err, "user_id", userID)
		return nil, err
	}

	return &PengadaanListResponse{
		Pengadaans: records,
		Limit:      limit,
		Offset:     offset,
		Total:      total,
	}, nil
}

func (s *Service) SearchPengadaans(query string, limit, offset int) (*PengadaanListResponse, error) {
	records, total, err := s.repo.Search(query, limit, offset)
	if err != nil {
		s.logger.Error("pengadaan search failed", "error", err, "query", query)
		return nil, err
	}

	return &PengadaanListResponse{
		Pengadaans: records,
		Limit:      limit,
		Offset:     offset,
		Total:      total,
	}, nil
}

// UpdatePengadaan applies an edit after the gate allows it and appends the
// change to the record's edit history.
func (s *Service) UpdatePengadaan(id, userID int64, role string, dto UpdatePengadaanDTO) (*Pengadaan, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	allowed, err := s.gate.CanEdit(userID, role, gateRecord(record))
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Warn("pengadaan edit denied",
			"pengadaan_id", id,
			"user_id", userID,
			"role", role)
		return nil, ErrEditDenied
	}

	record.Title = dto.Title
	record.Description = dto.Description
	record.Category = dto.Category
	record.Vendor = dto.Vendor
	record.AmountIDR = dto.AmountIDR
	record.UpdatedAt = time.Now()

	if err := s.repo.Update(record); err != nil {
		s.logger.Error("failed to update pengadaan", "error", err, "pengadaan_id", id)
		return nil, err
	}

	entry := &EditLog{
		PengadaanID: id,
		EditedBy:    userID,
		Note:        dto.EditNote,
		EditedAt:    time.Now(),
	}
	if err := s.repo.AppendEditLog(entry); err != nil {
		// the edit itself succeeded; the history gap is logged, not fatal
		s.logger.Error("failed to append edit log", "error", err, "pengadaan_id", id)
	}

	s.logger.Info("pengadaan updated", "pengadaan_id", id, "user_id", userID)

	return record, nil
}

func (s *Service) DeletePengadaan(id, userID int64, role string) error {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return ErrNotFound
	}

	allowed, err := s.gate.CanDelete(userID, role, gateRecord(record))
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.Warn("pengadaan delete denied",
			"pengadaan_id", id,
			"user_id", userID,
			"role", role)
		return ErrEditDenied
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete pengadaan", "error", err, "pengadaan_id", id)
		return err
	}

	s.logger.Info("pengadaan deleted", "pengadaan_id", id, "user_id", userID)
	return nil
}

func (s *Service) SubmitPengadaan(id, userID int64, role string) (*Pengadaan, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	if role != "admin" && record.CreatedBy != userID {
		return nil, ErrEditDenied
	}

	if !record.CanBeSubmitted() {
		s.logger.Warn("pengadaan cannot be submitted",
			"pengadaan_id", id,
			"status", record.Status)
		return nil, ErrAlreadySubmitted
	}

	record.Submit(userID)
	if err := s.repo.Update(record); err != nil {
		s.logger.Error("failed to submit pengadaan", "error", err, "pengadaan_id", id)
		return nil, err
	}

	s.logger.Info("pengadaan submitted", "pengadaan_id", id, "user_id", userID)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPengadaanSubmittedEvent(id, userID))
	}

	return record, nil
}

func (s *Service) GetEditLogs(pengadaanID, userID int64, role string) ([]*EditLog, error) {
	if _, err := s.GetPengadaanByID(pengadaanID, userID, role); err != nil {
		return nil, err
	}
	return s.repo.EditLogs(pengadaanID)
}

// ExportCSV renders the caller's visible records as CSV.
func (s *Service) ExportCSV(userID int64, role string) ([]byte, error) {
	const exportLimit = 1000

	var (
		records []*Pengadaan
		err     error
	)
	if role == "admin" {
		records, _, err = s.repo.GetAll(exportLimit, 0)
	} else {
		records, _, err = s.repo.GetByCreator(userID, exportLimit, 0)
	}
	if err != nil {
		s.logger.Error("pengadaan export failed", "error", err, "user_id", userID)
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "title", "category", "vendor", "amount_idr", "status", "created_by", "submitted_at"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, p := range records {
		submittedAt := ""
		if p.SubmittedAt != nil {
			submittedAt = p.SubmittedAt.Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatInt(p.ID, 10),
			p.Title,
			p.Category,
			p.Vendor,
			strconv.FormatInt(p.AmountIDR, 10),
			p.Status,
			strconv.FormatInt(p.CreatedBy, 10),
			submittedAt,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gateRecord(p *Pengadaan) permission.Record {
	return permission.Record{
		ID:          p.ID,
		IsEditable:  p.IsEditable,
		CreatedBy:   p.CreatedBy,
		IsSubmitted: p.IsSubmitted(),
	}
}
