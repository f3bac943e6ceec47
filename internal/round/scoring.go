package round

import (
	"context"
	"fmt"
	"strings"
)

// ScoringMode selects how outcomes reach the stats recorder. The two modes
// are not numerically equivalent; an engine uses exactly one.
type ScoringMode int

const (
	// Bucketed increments one of the four outcome counters (or the penalty counter).
	Bucketed ScoringMode = iota
	// Signed adds the signed delta to a running score against a growing ceiling.
	Signed
)

// String returns the config name of the mode.
func (m ScoringMode) String() string {
	switch m {
	case Bucketed:
		return "bucketed"
	case Signed:
		return "signed"
	default:
		return fmt.Sprintf("ScoringMode(%d)", int(m))
	}
}

// ParseScoringMode accepts "bucketed" or "signed" (case-insensitive).
// The empty string selects Bucketed.
func ParseScoringMode(s string) (ScoringMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bucketed":
		return Bucketed, nil
	case "signed":
		return Signed, nil
	default:
		return 0, fmt.Errorf("unknown scoring mode %q", s)
	}
}

// outcome is the scored result of a round before it is applied.
type outcome struct {
	isBot  bool
	bucket Bucket
	delta  int
}

// apply forwards an outcome to the recorder according to the mode.
func (m ScoringMode) apply(ctx context.Context, rec StatsRecorder, userID string, o outcome, maxPoints int) error {
	switch m {
	case Signed:
		return rec.ApplyDelta(ctx, userID, o.isBot, o.delta, maxPoints)
	default:
		return rec.RecordBucket(ctx, userID, o.bucket)
	}
}

// PenaltyDelta is the fixed delta of a penalty round: -maxPoints/2 rounded
// toward negative infinity, so an odd ceiling of 25 costs 13.
func PenaltyDelta(maxPoints int) int {
	n := -maxPoints
	q := n / 2
	if n%2 != 0 && n < 0 {
		q--
	}
	return q
}

// SignedDelta is the stake won or lost by a normal submission.
func SignedDelta(points int, correct bool) int {
	if correct {
		return points
	}
	return -points
}
