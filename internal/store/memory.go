// internal/store/memory.go
//
// In-memory registry of live rounds.
// A round is owned by the caller from Start until the player's route choice;
// over HTTP that caller is this registry.
//
// Characteristics:
//   - At most one round per user: Put replaces (and thereby abandons) the previous one.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts, which leaves the persisted
//     penalty flag armed exactly like a closed browser tab.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/spotthebot/internal/round"
)

// ErrNoRound is returned by Get when the user has no round in the registry.
var ErrNoRound = errors.New("no round")

// Rounds holds the current round of each user.
// Implementations may be backed by memory (this package), Redis, etc.
type Rounds interface {
	// Put stores r as the user's current round and returns the one it replaced, if any.
	Put(ctx context.Context, r *round.Round) (*round.Round, error)

	// Get retrieves the user's current round.
	Get(ctx context.Context, userID string) (*round.Round, error)

	// Delete forgets the user's round if its ID matches.
	Delete(ctx context.Context, userID, roundID string) error
}

// memory is an in-memory map-based Rounds implementation.
type memory struct {
	mu     sync.RWMutex            // guards rounds map
	rounds map[string]*round.Round // keyed by user ID
}

// NewMemoryRounds constructs a new in-memory registry.
func NewMemoryRounds() Rounds {
	return &memory{rounds: make(map[string]*round.Round)}
}

func (m *memory) Put(_ context.Context, r *round.Round) (*round.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.rounds[r.UserID]
	m.rounds[r.UserID] = r
	return prev, nil
}

func (m *memory) Get(_ context.Context, userID string) (*round.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rounds[userID]; ok {
		return r, nil
	}
	return nil, ErrNoRound
}

func (m *memory) Delete(_ context.Context, userID, roundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rounds[userID]; ok && r.ID == roundID {
		delete(m.rounds, userID)
	}
	return nil
}
