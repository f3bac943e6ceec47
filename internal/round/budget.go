package round

// DefaultFloor is the certainty floor below which decay stops.
const DefaultFloor = 5

// Budget is the time-decaying certainty a submission is scored with.
// It is owned by one round and must not be shared.
type Budget struct {
	remaining int
	floor     int
	closed    bool
}

// NewBudget starts a budget at wordCount/4 with the default floor.
func NewBudget(wordCount int) *Budget {
	return NewBudgetWithFloor(wordCount, DefaultFloor)
}

// NewBudgetWithFloor starts a budget at wordCount/4 with a custom floor.
func NewBudgetWithFloor(wordCount, floor int) *Budget {
	if wordCount < 0 {
		wordCount = 0
	}
	return &Budget{remaining: wordCount / 4, floor: floor}
}

// Tick decrements the budget by one while it is above the floor.
// Returns false when the tick had no effect (at floor or closed).
func (b *Budget) Tick() bool {
	if b.closed || b.remaining <= b.floor {
		return false
	}
	b.remaining--
	return true
}

// Advance applies ticks units at once and returns how many changed the budget.
func (b *Budget) Advance(ticks int) int {
	if b.closed {
		return 0
	}
	before := b.remaining
	b.remaining = DecayAfter(b.remaining, b.floor, ticks)
	return before - b.remaining
}

// Remaining is the certainty currently at stake.
func (b *Budget) Remaining() int { return b.remaining }

// Floor returns the configured floor.
func (b *Budget) Floor() int { return b.floor }

// Close freezes the budget; later ticks are no-ops.
func (b *Budget) Close() { b.closed = true }

// Closed reports whether Close has been called.
func (b *Budget) Closed() bool { return b.closed }

// DecayAfter is the pure form of the budget: the value after ticks have
// elapsed from initial with the given floor.
func DecayAfter(initial, floor, ticks int) int {
	if initial <= floor || ticks <= 0 {
		return initial
	}
	if v := initial - ticks; v > floor {
		return v
	}
	return floor
}
