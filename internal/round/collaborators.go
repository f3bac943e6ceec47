// internal/round/collaborators.go
//
// Contracts the engine calls out to. Implementations live in internal/store
// (SQLite) and internal/httpserver (request-scoped sessions); tests provide
// in-memory fakes.

package round

import (
	"context"
	"time"

	"github.com/robalobadob/spotthebot/internal/snippet"
)

// UserStore resolves players and owns their penalty flag and snippet history.
type UserStore interface {
	// GetUser returns ErrUserNotFound (possibly wrapped) for unknown keys.
	GetUser(ctx context.Context, sessionKey string) (*User, error)
	SetPenalty(ctx context.Context, userID string, pending bool) error
	AppendRecentSnippet(ctx context.Context, userID, snippetID string) error
}

// StatsRecorder accumulates per-user outcomes. Which method is called depends
// on the engine's ScoringMode.
type StatsRecorder interface {
	RecordBucket(ctx context.Context, userID string, b Bucket) error
	ApplyDelta(ctx context.Context, userID string, isBot bool, delta, maxPoints int) error
}

// SnippetStore hands out the next snippet a user has not seen.
type SnippetStore interface {
	// NextSnippet returns ErrSnippetExhausted (possibly wrapped) when nothing is left.
	NextSnippet(ctx context.Context, u *User) (snippet.Snippet, error)
}

// MarkerStore keeps global per-tag correctness counters.
type MarkerStore interface {
	UpdateMarkers(ctx context.Context, tags []string, correct bool) error
}

// Session is the request-scoped view of the player's local session.
type Session interface {
	Value(key string) (string, bool)
	ClearIdentity() error
}

// Journal records round history. It is optional.
type Journal interface {
	RoundStarted(ctx context.Context, roundID, userID, snippetID string, at time.Time) error
	RoundFinished(ctx context.Context, roundID string, status State, bucket Bucket, delta int, at time.Time) error
}

// Clock abstracts time for the decay timer.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
