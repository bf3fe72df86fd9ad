package consensus

import (
	"log/slog"

	"github.com/liftedinit/mhchain/internal/models"
)

// Validator decides whether a candidate chain is internally consistent.
type Validator interface {
	ValidChain(chain models.Chain) bool
}

type Resolver struct {
	validator Validator
}

func NewResolver(validator Validator) *Resolver {
	return &Resolver{validator: validator}
}

// Resolve returns the chain the node should hold after looking at the peer
// snapshots. replaced is true when a strictly longer valid snapshot was
// found; otherwise local is returned untouched.
func (r *Resolver) Resolve(local models.Chain, snapshots []models.Snapshot) (bool, models.Chain) {
	maxLength := len(local)
	var winner models.Chain

	for i, snapshot := range snapshots {
		if snapshot.Length <= maxLength {
			continue
		}
		if snapshot.Length != len(snapshot.Chain) {
			slog.Warn("Skipping peer chain with inconsistent length", "snapshot", i, "length", snapshot.Length, "blocks", len(snapshot.Chain))
			continue
		}
		if !r.validator.ValidChain(snapshot.Chain) {
			slog.Warn("Skipping invalid peer chain", "snapshot", i, "length", snapshot.Length)
			continue
		}
		maxLength = snapshot.Length
		winner = snapshot.Chain
	}

	if winner == nil {
		return false, local
	}
	return true, winner
}
