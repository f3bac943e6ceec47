package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBudget(t *testing.T) {
	tests := []struct {
		name  string
		words int
		want  int
	}{
		{"forty words", 40, 10},
		{"floor division", 43, 10},
		{"short text", 3, 0},
		{"empty", 0, 0},
		{"negative clamps", -8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBudget(tt.words).Remaining())
		})
	}
}

func TestBudgetTickStopsAtFloor(t *testing.T) {
	b := NewBudget(32) // 8
	assert.True(t, b.Tick())
	assert.True(t, b.Tick())
	assert.True(t, b.Tick())
	assert.Equal(t, 5, b.Remaining())
	assert.False(t, b.Tick())
	assert.Equal(t, 5, b.Remaining())
}

func TestBudgetTickAtFloorIsIdempotent(t *testing.T) {
	b := NewBudget(20) // exactly the floor
	for i := 0; i < 1000; i++ {
		b.Tick()
	}
	assert.Equal(t, 5, b.Remaining())
}

func TestBudgetBelowFloorNeverDecays(t *testing.T) {
	b := NewBudget(12) // 3
	for i := 0; i < 10; i++ {
		assert.False(t, b.Tick())
	}
	assert.Equal(t, 3, b.Remaining())
}

func TestBudgetClosedIgnoresTicks(t *testing.T) {
	b := NewBudget(100)
	b.Tick()
	b.Close()
	assert.True(t, b.Closed())
	assert.False(t, b.Tick())
	assert.Equal(t, 24, b.Remaining())
}

func TestDecayAfterMatchesTicking(t *testing.T) {
	for _, initialWords := range []int{0, 12, 20, 40, 100} {
		for ticks := 0; ticks < 40; ticks++ {
			b := NewBudget(initialWords)
			for i := 0; i < ticks; i++ {
				b.Tick()
			}
			assert.Equal(t, b.Remaining(), DecayAfter(initialWords/4, DefaultFloor, ticks),
				"words=%d ticks=%d", initialWords, ticks)
		}
	}
}

func TestBudgetAdvanceMatchesRepeatedTicks(t *testing.T) {
	for _, ticks := range []int{0, 1, 3, 7, 1 << 40} {
		jumped, stepped := NewBudget(40), NewBudget(40)
		n := ticks
		if n > 100 {
			n = 100
		}
		changed := 0
		for i := 0; i < n; i++ {
			if stepped.Tick() {
				changed++
			}
		}
		assert.Equal(t, changed, jumped.Advance(ticks))
		assert.Equal(t, stepped.Remaining(), jumped.Remaining())
	}

	b := NewBudget(40)
	b.Close()
	assert.Zero(t, b.Advance(3))
	assert.Equal(t, 10, b.Remaining())
}
