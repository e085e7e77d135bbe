package pengadaan

import (
	"errors"

	"github.com/noeralma/procure-flow-organize-sub000/internal/core/common/validation"
)

// CreatePengadaanDTO is the request payload for creating a pengadaan record.
type CreatePengadaanDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Vendor      string `json:"vendor"`
	AmountIDR   int64  `json:"amount_idr"`
}

func (dto CreatePengadaanDTO) Validate() error {
	if appErr := validation.ValidatePengadaanTitle(dto.Title); appErr != nil {
		return appErr
	}
	if appErr := validation.ValidatePengadaanAmount(dto.AmountIDR); appErr != nil {
		return appErr
	}
	if dto.Category == "" {
		return errors.New("category is required")
	}
	if len(dto.Description) > 2000 {
		return errors.New("description must not exceed 2000 characters")
	}
	return nil
}

// UpdatePengadaanDTO carries an edit to an existing record. The optional note
// lands in the edit history.
type UpdatePengadaanDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Vendor      string `json:"vendor"`
	AmountIDR   int64  `json:"amount_idr"`
	EditNote    string `json:"edit_note,omitempty"`
}

func (dto UpdatePengadaanDTO) Validate() error {
	create := CreatePengadaanDTO{
		Title:       dto.Title,
		Description: dto.Description,
		Category:    dto.Category,
		Vendor:      dto.Vendor,
		AmountIDR:   dto.AmountIDR,
	}
	return create.Validate()
}

// PengadaanListResponse is a paginated record listing.
type PengadaanListResponse struct {
	Pengadaans []*Pengadaan `json:"pengadaans"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	Total      int64        `json:"total"`
}

// Domain errors
var (
	ErrNotFound         = errors.New("pengadaan not found")
	ErrNotEditable      = errors.New("pengadaan is not editable")
	ErrAlreadySubmitted = errors.New("pengadaan already submitted")
	ErrEditDenied       = errors.New("edit permission denied")
)
