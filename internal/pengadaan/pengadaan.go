package pengadaan

import (
	"time"

	pengadaanDatamodel "github.com/noeralma/procure-flow-organize-sub000/internal/core/datamodel/pengadaan"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

type Pengadaan struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Vendor      string     `json:"vendor"`
	AmountIDR   int64      `json:"amount_idr"`
	Status      string     `json:"status"`
	IsEditable  bool       `json:"is_editable"`
	CreatedBy   int64      `json:"created_by"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	SubmittedBy *int64     `json:"submitted_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Pengadaan) IsSubmitted() bool {
	return p.SubmittedAt != nil
}

func (p *Pengadaan) CanBeSubmitted() bool {
	return p.Status == StatusDraft && !p.IsSubmitted()
}

// Submit marks the record as handed over for review. Edits after this point
// are gated by the permission workflow.
func (p *Pengadaan) Submit(userID int64) {
	now := time.Now()
	p.Status = StatusSubmitted
	p.SubmittedAt = &now
	p.SubmittedBy = &userID
	p.UpdatedAt = now
}

func NewPengadaan(userID int64, dto CreatePengadaanDTO) *Pengadaan {
	now := time.Now()
	return &Pengadaan{
		Title:       dto.Title,
		Description: dto.Description,
		Category:    dto.Category,
		Vendor:      dto.Vendor,
		AmountIDR:   dto.AmountIDR,
		Status:      StatusDraft,
		IsEditable:  true,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// EditLog is one entry of a record's append-only edit history.
type EditLog struct {
	ID          int64     `json:"id"`
	PengadaanID int64     `json:"pengadaan_id"`
	EditedBy    int64     `json:"edited_by"`
	Note        string    `json:"note"`
	EditedAt    time.Time `json:"edited_at"`
}

func ToDataModel(p *Pengadaan) *pengadaanDatamodel.Pengadaan {
	return &pengadaanDatamodel.Pengadaan{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Vendor:      p.Vendor,
		AmountIDR:   p.AmountIDR,
		Status:      p.Status,
		IsEditable:  p.IsEditable,
		CreatedBy:   p.CreatedBy,
		SubmittedAt: p.SubmittedAt,
		SubmittedBy: p.SubmittedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(p *pengadaanDatamodel.Pengadaan) *Pengadaan {
	return &Pengadaan{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Vendor:      p.Vendor,
		AmountIDR:   p.AmountIDR,
		Status:      p.Status,
		IsEditable:  p.IsEditable,
		CreatedBy:   p.CreatedBy,
		SubmittedAt: p.SubmittedAt,
		SubmittedBy: p.SubmittedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModelSlice(records []*pengadaanDatamodel.Pengadaan) []*Pengadaan {
	result := make([]*Pengadaan, len(records))
	for i, p := range records {
		result[i] = FromDataModel(p)
	}
	return result
}
