package round

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PenaltyGate remembers whether a user's previous round was abandoned.
// The flag is armed when a round starts and cleared when it is closed, so a
// round found armed at start pays for the one before it.
type PenaltyGate struct {
	users UserStore
}

// NewPenaltyGate wraps a user store.
func NewPenaltyGate(users UserStore) *PenaltyGate {
	return &PenaltyGate{users: users}
}

// Arm marks u as having a live round and reports whether the new round must
// be penalized for an earlier abandonment.
func (g *PenaltyGate) Arm(ctx context.Context, u *User) (penalize bool, err error) {
	penalize = u.PenaltyPending
	if err := g.users.SetPenalty(ctx, u.ID, true); err != nil {
		return false, fmt.Errorf("arm penalty: %w", err)
	}
	u.PenaltyPending = true
	log.Debug().Str("user", u.ID).Bool("penalize", penalize).Msg("penalty armed")
	return penalize, nil
}

// Clear discharges the flag.
func (g *PenaltyGate) Clear(ctx context.Context, userID string) error {
	if err := g.users.SetPenalty(ctx, userID, false); err != nil {
		return fmt.Errorf("clear penalty: %w", err)
	}
	return nil
}
