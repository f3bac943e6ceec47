package round

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/spotthebot/internal/snippet"
)

func newTestEngine(t *testing.T, mode ScoringMode, snips ...snippet.Snippet) (*Engine, *fakeStore, *fakeClock) {
	t.Helper()
	st := newFakeStore(snips...)
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	e := NewEngine(Deps{
		Users:    st,
		Stats:    st,
		Snippets: st,
		Markers:  st,
		Clock:    clk,
	}, Config{MaxPoints: 20, Floor: 5, Tick: time.Second, Mode: mode})
	return e, st, clk
}

func TestClassifyAllCombinations(t *testing.T) {
	tests := []struct {
		isBot, flagged bool
		want           Bucket
		correct        bool
	}{
		{true, true, TruePositive, true},
		{false, false, TrueNegative, true},
		{true, false, FalseNegative, false},
		{false, true, FalsePositive, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			b, correct := Classify(tt.isBot, tt.flagged)
			assert.Equal(t, tt.want, b)
			assert.Equal(t, tt.correct, correct)
			assert.Equal(t, tt.isBot == tt.flagged, correct)
		})
	}
}

func TestSubmitBucketsForEveryCombination(t *testing.T) {
	tests := []struct {
		name   string
		isBot  bool
		tags   []string
		bucket Bucket
		delta  int
	}{
		{"bot flagged", true, []string{"vague"}, TruePositive, 10},
		{"human unflagged", false, nil, TrueNegative, 10},
		{"bot missed", true, nil, FalseNegative, -10},
		{"human flagged", false, []string{"vague", "repetition"}, FalsePositive, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "s1", Text: words(40), IsBot: tt.isBot})
			ctx := context.Background()

			r, err := e.Start(ctx, newSession("key-ada"))
			require.NoError(t, err)
			for _, tag := range tt.tags {
				r.AddTag(tag)
			}
			res, err := e.Submit(ctx, r, newSession("key-ada"))
			require.NoError(t, err)

			assert.Equal(t, string(tt.bucket), res.Outcome)
			assert.Equal(t, tt.delta, res.Delta)
			assert.Equal(t, 1, st.buckets["u-ada"][tt.bucket])
			assert.Equal(t, StateCompleted, r.State())
			assert.False(t, st.pending("u-ada"))
			assert.Equal(t, []string{"s1"}, st.byID("u-ada").RecentSnippetIDs)
		})
	}
}

func TestScenarioDecayThenTaggedBot(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "s40", Text: words(40), IsBot: true})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	assert.Equal(t, 10, r.Remaining())

	for i := 0; i < 3; i++ {
		r.Tick()
	}
	assert.Equal(t, 7, r.Remaining())

	r.AddTag("repetition")
	assert.Equal(t, LabelBot, r.Label())

	res, err := e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 7, res.Delta)
	assert.Equal(t, string(TruePositive), res.Outcome)
	assert.Equal(t, "ada classified BOT text s40 as BOT with 7 points certainty of 20 total.", res.Classification)
	assert.Equal(t, [2]int{1, 0}, st.markers["repetition"])
}

func TestScenarioUntaggedHuman(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "h", Text: words(32), IsBot: false})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	require.Equal(t, 8, r.Remaining())

	res, err := e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 8, res.Delta)
	assert.Equal(t, string(TrueNegative), res.Outcome)
	assert.Zero(t, st.markerCalls)
}

func TestSyncAppliesElapsedTicks(t *testing.T) {
	e, _, clk := newTestEngine(t, Bucketed, snippet.Snippet{ID: "s", Text: words(40), IsBot: true})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)

	clk.Advance(2500 * time.Millisecond)
	assert.Equal(t, 2, r.Sync(clk.Now()))
	assert.Equal(t, 8, r.Remaining())

	// same instant again applies nothing
	assert.Equal(t, 0, r.Sync(clk.Now()))

	// one manual tick counts as an elapsed unit
	r.Tick()
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, r.Sync(clk.Now()))
	assert.Equal(t, 7, r.Remaining())

	clk.Advance(time.Hour)
	r.Sync(clk.Now())
	assert.Equal(t, 5, r.Remaining())
}

func TestSubmitSyncsClockBeforeScoring(t *testing.T) {
	e, _, clk := newTestEngine(t, Bucketed, snippet.Snippet{ID: "s", Text: words(40), IsBot: false})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	clk.Advance(4 * time.Second)

	res, err := e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Delta)
}

func TestAbandonedRoundPenalizesNext(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed,
		snippet.Snippet{ID: "a", Text: words(40), IsBot: true},
		snippet.Snippet{ID: "b", Text: words(40), IsBot: false},
	)
	ctx := context.Background()

	roundA, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	assert.False(t, roundA.Penalized())
	assert.True(t, st.pending("u-ada"))

	// A is abandoned: no submit.
	roundB, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	assert.True(t, roundB.Penalized())
	assert.True(t, st.pending("u-ada"))

	roundB.AddTag("vague")
	res, err := e.Submit(ctx, roundB, newSession("key-ada"))
	require.NoError(t, err)
	assert.True(t, res.Penalized)
	assert.Equal(t, "PENALIZED", res.Outcome)
	assert.Equal(t, "PENALIZED!", res.Classification)
	assert.Equal(t, -10, res.Delta)
	assert.Equal(t, StatePenalized, roundB.State())
	assert.False(t, st.pending("u-ada"))

	assert.Equal(t, 1, st.buckets["u-ada"][Penalized])
	assert.Zero(t, st.markerCalls, "penalty rounds never touch markers")
	assert.Empty(t, st.byID("u-ada").RecentSnippetIDs)

	// the next round is normal again
	roundC, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	assert.False(t, roundC.Penalized())
}

func TestPenaltyIgnoresSelectionContent(t *testing.T) {
	for _, tags := range [][]string{nil, {"a"}, {"a", "b", "c"}} {
		for _, isBot := range []bool{true, false} {
			t.Run(fmt.Sprintf("bot=%v/tags=%d", isBot, len(tags)), func(t *testing.T) {
				e, st, _ := newTestEngine(t, Signed, snippet.Snippet{ID: "x", Text: words(80), IsBot: isBot})
				st.byID("u-ada").PenaltyPending = true
				ctx := context.Background()

				r, err := e.Start(ctx, newSession("key-ada"))
				require.NoError(t, err)
				for _, tag := range tags {
					r.AddTag(tag)
				}
				res, err := e.Submit(ctx, r, newSession("key-ada"))
				require.NoError(t, err)
				assert.Equal(t, -10, res.Delta)
				assert.Equal(t, "PENALIZED", res.Outcome)
				assert.Equal(t, -10, st.score["u-ada"])
				assert.Equal(t, 20, st.ceiling["u-ada"])
			})
		}
	}
}

func TestPenaltyDelta(t *testing.T) {
	assert.Equal(t, -10, PenaltyDelta(20))
	assert.Equal(t, -13, PenaltyDelta(25))
	assert.Equal(t, 0, PenaltyDelta(0))
	assert.Equal(t, -1, PenaltyDelta(1))
}

func TestSignedModeAppliesDeltaAgainstCeiling(t *testing.T) {
	e, st, _ := newTestEngine(t, Signed,
		snippet.Snippet{ID: "a", Text: words(40), IsBot: true},
		snippet.Snippet{ID: "b", Text: words(24), IsBot: true},
	)
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	won := r.Remaining()
	r.AddTag("vague")
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)

	r, err = e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	lost := r.Remaining()
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)

	// one snippet is worth 10, the other 6; the second is missed
	assert.ElementsMatch(t, []int{10, 6}, []int{won, lost})
	assert.Equal(t, won-lost, st.score["u-ada"])
	assert.Equal(t, 40, st.ceiling["u-ada"])
	assert.Empty(t, st.buckets["u-ada"])
}

func TestMarkersOnlyWithTags(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed,
		snippet.Snippet{ID: "a", Text: words(40), IsBot: false},
		snippet.Snippet{ID: "b", Text: words(40), IsBot: false},
	)
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.Zero(t, st.markerCalls)

	r, err = e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	r.AddTag("vague")
	r.AddTag("vague")
	r.RemoveTag("vague")
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.Equal(t, 1, st.markerCalls)
	assert.Equal(t, [2]int{0, 1}, st.markers["vague"])
}

func TestFollowUpWriteFailuresStillFinishRound(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*fakeStore)
	}{
		{"markers", func(st *fakeStore) { st.markerErr = fmt.Errorf("disk full") }},
		{"history", func(st *fakeStore) { st.recentErr = fmt.Errorf("disk full") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, st, _ := newTestEngine(t, Bucketed,
				snippet.Snippet{ID: "a", Text: words(40), IsBot: true},
				snippet.Snippet{ID: "b", Text: words(40), IsBot: true},
			)
			ctx := context.Background()
			tt.inject(st)

			r, err := e.Start(ctx, newSession("key-ada"))
			require.NoError(t, err)
			r.AddTag("vague")
			res, err := e.Submit(ctx, r, newSession("key-ada"))
			require.NoError(t, err)
			assert.Equal(t, string(TruePositive), res.Outcome)
			assert.Equal(t, StateCompleted, r.State())
			assert.Equal(t, 1, st.buckets["u-ada"][TruePositive])
			assert.False(t, st.pending("u-ada"))

			dest, err := e.Route(ctx, r, ChoiceContinue)
			require.NoError(t, err)
			assert.Equal(t, DestGame, dest)

			next, err := e.Start(ctx, newSession("key-ada"))
			require.NoError(t, err)
			assert.False(t, next.Penalized())
		})
	}
}

func TestPenaltyClearFailureIsRetriedByRoute(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40)})
	ctx := context.Background()
	st.clearErr = fmt.Errorf("locked")

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, r.State())
	assert.True(t, st.pending("u-ada"))

	st.clearErr = nil
	_, err = e.Route(ctx, r, ChoiceQuit)
	require.NoError(t, err)
	assert.False(t, st.pending("u-ada"))
}

func TestStatsFailureAppliesNothing(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40), IsBot: true})
	ctx := context.Background()
	st.statsErr = fmt.Errorf("disk full")

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	r.AddTag("vague")
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.Error(t, err)

	assert.Equal(t, StateClosing, r.State())
	assert.Empty(t, st.byID("u-ada").RecentSnippetIDs)
	assert.Zero(t, st.markerCalls)
	assert.Empty(t, st.buckets["u-ada"])
}

func TestSyncJumpsLargeElapsedTime(t *testing.T) {
	st := newFakeStore(snippet.Snippet{ID: "s", Text: words(40), IsBot: true})
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	e := NewEngine(Deps{Users: st, Stats: st, Snippets: st, Markers: st, Clock: clk},
		Config{MaxPoints: 20, Floor: 5, Tick: time.Nanosecond, Mode: Bucketed})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)

	clk.Advance(time.Hour)
	assert.Equal(t, 5, r.Sync(clk.Now()))
	assert.Equal(t, 5, r.Remaining())
	assert.Equal(t, 0, r.Sync(clk.Now()))
}

func TestTagAddedThenRemovedCountsAsUnflagged(t *testing.T) {
	e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40), IsBot: false})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	r.AddTag("vague")
	r.RemoveTag("vague")
	_, ok := r.RemoveTag("vague")
	assert.False(t, ok)

	res, err := e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	assert.Equal(t, string(TrueNegative), res.Outcome)
	assert.Zero(t, st.markerCalls)
}

func TestStartErrorsMutateNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("session missing", func(t *testing.T) {
		e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40)})
		_, err := e.Start(ctx, &fakeSession{values: map[string]string{}})
		assert.ErrorIs(t, err, ErrSessionMissing)
		assert.Empty(t, st.penaltySets)
	})

	t.Run("user not found", func(t *testing.T) {
		e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40)})
		_, err := e.Start(ctx, newSession("nobody"))
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, st.penaltySets)
	})

	t.Run("snippets exhausted", func(t *testing.T) {
		e, st, _ := newTestEngine(t, Bucketed)
		_, err := e.Start(ctx, newSession("key-ada"))
		assert.ErrorIs(t, err, ErrSnippetExhausted)
		assert.Empty(t, st.penaltySets)
		assert.False(t, st.pending("u-ada"))
	})
}

func TestSnippetsAreNotRepeated(t *testing.T) {
	e, _, _ := newTestEngine(t, Bucketed,
		snippet.Snippet{ID: "a", Text: words(40)},
		snippet.Snippet{ID: "b", Text: words(40)},
	)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		r, err := e.Start(ctx, newSession("key-ada"))
		require.NoError(t, err)
		seen[r.Snippet.ID] = true
		_, err = e.Submit(ctx, r, newSession("key-ada"))
		require.NoError(t, err)
	}
	assert.Len(t, seen, 2)

	_, err := e.Start(ctx, newSession("key-ada"))
	assert.ErrorIs(t, err, ErrSnippetExhausted)
}

func TestSubmitConsumesIdentityOnce(t *testing.T) {
	e, _, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40)})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)

	sess := newSession("key-ada")
	sess.values[IdentityKey] = "marker-1"
	_, err = e.Submit(ctx, r, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.cleared)

	_, err = e.Submit(ctx, r, sess)
	assert.ErrorIs(t, err, ErrRoundNotLive)
	assert.Equal(t, 1, sess.cleared)
}

func TestSubmitWithoutIdentitySkipsCleanup(t *testing.T) {
	e, _, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40)})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	sess := newSession("key-ada")
	_, err = e.Submit(ctx, r, sess)
	require.NoError(t, err)
	assert.Zero(t, sess.cleared)
}

func TestInputsAfterSubmitAreIgnored(t *testing.T) {
	e, _, clk := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40), IsBot: true})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)
	r.AddTag("vague")
	_, err = e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)

	assert.False(t, r.Tick())
	clk.Advance(time.Minute)
	assert.Zero(t, r.Sync(clk.Now()))
	assert.Equal(t, 10, r.Remaining())

	_, ok := r.AddTag("repetition")
	assert.False(t, ok)
	assert.Equal(t, []string{"vague"}, r.Snapshot().Tags)
}

func TestConcurrentTicksAndSubmit(t *testing.T) {
	e, _, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(400), IsBot: true})
	ctx := context.Background()

	r, err := e.Start(ctx, newSession("key-ada"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Tick()
			}
		}()
	}
	res, err := e.Submit(ctx, r, newSession("key-ada"))
	require.NoError(t, err)
	wg.Wait()

	// whatever was ticked before the close is what got scored
	assert.Equal(t, r.Remaining(), -res.Delta)
}

func TestRouteAlwaysClearsPenalty(t *testing.T) {
	tests := []struct {
		choice string
		want   string
	}{
		{ChoiceContinue, DestGame},
		{ChoiceQuit, DestEntry},
		{ChoiceDismiss, DestEntry},
		{"", DestEntry},
	}
	for _, tt := range tests {
		t.Run("choice="+tt.choice, func(t *testing.T) {
			e, st, _ := newTestEngine(t, Bucketed, snippet.Snippet{ID: "a", Text: words(40)})
			ctx := context.Background()

			r, err := e.Start(ctx, newSession("key-ada"))
			require.NoError(t, err)

			_, err = e.Route(ctx, r, tt.choice)
			assert.ErrorIs(t, err, ErrRoundStillLive)

			_, err = e.Submit(ctx, r, newSession("key-ada"))
			require.NoError(t, err)
			st.byID("u-ada").PenaltyPending = true // a stale flag must not survive routing

			dest, err := e.Route(ctx, r, tt.choice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dest)
			assert.False(t, st.pending("u-ada"))
		})
	}
}

func TestParseScoringMode(t *testing.T) {
	m, err := ParseScoringMode("")
	require.NoError(t, err)
	assert.Equal(t, Bucketed, m)

	m, err = ParseScoringMode(" Signed ")
	require.NoError(t, err)
	assert.Equal(t, Signed, m)
	assert.Equal(t, "signed", m.String())

	_, err = ParseScoringMode("elo")
	assert.Error(t, err)
}
