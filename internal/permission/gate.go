package permission

import (
	"log/slog"
)

// Record is the slice of a pengadaan record the gate needs for a decision.
type Record struct {
	ID          int64
	IsEditable  bool
	CreatedBy   int64
	IsSubmitted bool
}

// GrantChecker looks up active grants in the ledger. Implemented by the
// workflow service; the gate never mutates ledger entries itself.
type GrantChecker interface {
	HasEditPermission(userID, pengadaanID int64) (bool, error)
	HasDeletePermission(userID, pengadaanID int64) (bool, error)
}

// Gate is the single decision point consulted before any pengadaan mutation
// by a non-admin. It has no side effects.
type Gate struct {
	grants GrantChecker
	logger *slog.Logger
}

func NewGate(grants GrantChecker, logger *slog.Logger) *Gate {
	return &Gate{
		grants: grants,
		logger: logger,
	}
}

// CanEdit decides edit eligibility. Rule order matters:
// admins always may; locked records never may; owners may edit their own
// unsubmitted drafts; everyone else needs an active EDIT_FORM grant.
func (g *Gate) CanEdit(actorUserID int64, actorRole string, record Record) (bool, error) {
	if actorRole == "admin" {
		return true, nil
	}
	if !record.IsEditable {
		return false, nil
	}
	if record.CreatedBy == actorUserID && !record.IsSubmitted {
		return true, nil
	}

	granted, err := g.grants.HasEditPermission(actorUserID, record.ID)
	if err != nil {
		g.logger.Error("gate: grant lookup failed", "error", err, "user_id", actorUserID, "pengadaan_id", record.ID)
		return false, err
	}
	return granted, nil
}

// CanDelete mirrors CanEdit for DELETE_FORM grants.
func (g *Gate) CanDelete(actorUserID int64, actorRole string, record Record) (bool, error) {
	if actorRole == "admin" {
		return true, nil
	}
	if !record.IsEditable {
		return false, nil
	}
	if record.CreatedBy == actorUserID && !record.IsSubmitted {
		return true, nil
	}

	granted, err := g.grants.HasDeletePermission(actorUserID, record.ID)
	if err != nil {
		g.logger.Error("gate: grant lookup failed", "error", err, "user_id", actorUserID, "pengadaan_id", record.ID)
		return false, err
	}
	return granted, nil
}
