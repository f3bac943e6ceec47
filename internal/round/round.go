// internal/round/round.go
//
// Round is the explicit per-round value the caller owns from Start until the
// route decision. It bundles the snippet, the player's selection and the
// points budget, and guards them with a mutex so a tick or tag event racing a
// submit is ignored once the round has left the live state.

package round

import (
	"sync"
	"time"

	"github.com/robalobadob/spotthebot/internal/snippet"
)

// Round is one presentation of a snippet to one user.
type Round struct {
	ID      string
	UserID  string
	Snippet snippet.Snippet

	mu        sync.Mutex
	user      User
	state     State
	penalize  bool
	selection *Selection
	budget    *Budget
	startedAt time.Time
	cadence   time.Duration
	ticked    int
	result    *Result
}

// Snapshot is a read-only copy of a round's observable state.
type Snapshot struct {
	ID        string   `json:"roundId"`
	SnippetID string   `json:"snippetId"`
	State     State    `json:"state"`
	Remaining int      `json:"remaining"`
	Tags      []string `json:"tags"`
	TagCount  int      `json:"tagCount"`
	Label     string   `json:"label"`
}

func newRound(id string, u User, s snippet.Snippet, penalize bool, floor int, start time.Time, cadence time.Duration) *Round {
	return &Round{
		ID:        id,
		UserID:    u.ID,
		Snippet:   s,
		user:      u,
		state:     StateLive,
		penalize:  penalize,
		selection: NewSelection(),
		budget:    NewBudgetWithFloor(s.WordCount(), floor),
		startedAt: start,
		cadence:   cadence,
	}
}

// State returns the current lifecycle state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Remaining returns the points currently at stake.
func (r *Round) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.budget.Remaining()
}

// Tick advances the decay timer by one unit. It is a no-op unless live.
// Manual ticks count toward the units Sync considers already elapsed.
func (r *Round) Tick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLive {
		return false
	}
	r.ticked++
	return r.budget.Tick()
}

// Sync applies every tick that has elapsed between the round start and now
// at the configured cadence. Ticks already applied are not repeated, and
// the elapsed units are applied in one step.
func (r *Round) Sync(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLive || r.cadence <= 0 {
		return 0
	}
	due := int(now.Sub(r.startedAt) / r.cadence)
	if due <= r.ticked {
		return 0
	}
	n := due - r.ticked
	r.ticked = due
	return r.budget.Advance(n)
}

// AddTag records a tag on one more span. Ignored unless live.
func (r *Round) AddTag(tag string) (count int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLive {
		return r.selection.Count(tag), false
	}
	return r.selection.AddTag(tag), true
}

// RemoveTag removes a tag from one span. Ignored unless live or when the
// tag count is already zero.
func (r *Round) RemoveTag(tag string) (count int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLive {
		return r.selection.Count(tag), false
	}
	return r.selection.RemoveTag(tag)
}

// Label is the submit control text.
func (r *Round) Label() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection.Label()
}

// Result returns the outcome once the round has been submitted.
func (r *Round) Result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return Result{}, false
	}
	return *r.result, true
}

// Snapshot copies the observable state.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:        r.ID,
		SnippetID: r.Snippet.ID,
		State:     r.state,
		Remaining: r.budget.Remaining(),
		Tags:      r.selection.Tags(),
		TagCount:  r.selection.Total(),
		Label:     r.selection.Label(),
	}
}

// Penalized reports whether the round was born as a penalty round.
func (r *Round) Penalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.penalize
}

// close moves a live round to closing and freezes its inputs.
func (r *Round) close() (tags []string, points int, penalize bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLive {
		return nil, 0, false, false
	}
	r.state = StateClosing
	r.budget.Close()
	return r.selection.Tags(), r.budget.Remaining(), r.penalize, true
}

// finish records the terminal state and result.
func (r *Round) finish(s State, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.result = &res
}
