// internal/round/engine.go
//
// Round evaluator: the state machine that opens a round for a user, scores
// the submission and routes the player afterwards.
//
// Lifecycle:
//   Start   → resolve session, user and snippet, arm the penalty gate → Live
//   Submit  → Live → Closing → Completed | Penalized
//   Route   → clears the penalty flag and picks the next page
//
// Abandonment has no transition of its own. A round that is never submitted
// leaves the penalty flag armed, and the next Start turns into a penalty round.

package round

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/spotthebot/internal/snippet"
)

// Config tunes the engine.
type Config struct {
	MaxPoints int           // display ceiling, also the base of the penalty
	Floor     int           // certainty floor of the decay timer
	Tick      time.Duration // decay cadence used by Round.Sync
	Mode      ScoringMode
}

// DefaultConfig mirrors the game's shipped settings.
func DefaultConfig() Config {
	return Config{MaxPoints: 25, Floor: DefaultFloor, Tick: time.Second, Mode: Bucketed}
}

// Deps are the collaborators an engine calls out to. Journal and Clock are optional.
type Deps struct {
	Users    UserStore
	Stats    StatsRecorder
	Snippets SnippetStore
	Markers  MarkerStore
	Journal  Journal
	Clock    Clock
}

// Engine evaluates rounds. It holds no per-round state.
type Engine struct {
	deps Deps
	cfg  Config
	gate *PenaltyGate
	ids  func() string
}

// NewEngine wires an engine. Zero config fields fall back to DefaultConfig.
func NewEngine(d Deps, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = def.MaxPoints
	}
	if cfg.Floor <= 0 {
		cfg.Floor = def.Floor
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	return &Engine{deps: d, cfg: cfg, gate: NewPenaltyGate(d.Users), ids: uuid.NewString}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Start opens a round for the session's user.
// On ErrSessionMissing, ErrUserNotFound or ErrSnippetExhausted nothing is mutated.
func (e *Engine) Start(ctx context.Context, sess Session) (*Round, error) {
	key, ok := sess.Value(SessionKey)
	if !ok || key == "" {
		return nil, ErrSessionMissing
	}
	u, err := e.deps.Users.GetUser(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	s, err := e.deps.Snippets.NextSnippet(ctx, u)
	if err != nil {
		if errors.Is(err, ErrSnippetExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("next snippet: %w", err)
	}

	penalize, err := e.gate.Arm(ctx, u)
	if err != nil {
		return nil, err
	}

	now := e.deps.Clock.Now()
	r := newRound(e.ids(), *u, s, penalize, e.cfg.Floor, now, e.cfg.Tick)
	if e.deps.Journal != nil {
		if err := e.deps.Journal.RoundStarted(ctx, r.ID, u.ID, s.ID, now); err != nil {
			log.Warn().Err(err).Str("round", r.ID).Msg("journal round start")
		}
	}
	log.Info().
		Str("round", r.ID).
		Str("user", u.ID).
		Str("snippet", s.ID).
		Bool("penalize", penalize).
		Int("points", r.Remaining()).
		Msg("round started")
	return r, nil
}

// Submit closes a live round and applies its outcome.
// The identity marker is consumed exactly once before any scoring.
func (e *Engine) Submit(ctx context.Context, r *Round, sess Session) (Result, error) {
	r.Sync(e.deps.Clock.Now())
	tags, points, penalize, ok := r.close()
	if !ok {
		return Result{}, ErrRoundNotLive
	}

	if _, ok := sess.Value(IdentityKey); ok {
		if err := sess.ClearIdentity(); err != nil {
			log.Warn().Err(err).Str("round", r.ID).Msg("clear identity")
		}
	}

	var (
		res    Result
		state  State
		scored outcome
	)
	if penalize {
		scored = outcome{isBot: r.Snippet.IsBot, bucket: Penalized, delta: PenaltyDelta(e.cfg.MaxPoints)}
		if err := e.cfg.Mode.apply(ctx, e.deps.Stats, r.UserID, scored, e.cfg.MaxPoints); err != nil {
			return Result{}, fmt.Errorf("apply penalty: %w", err)
		}
		state = StatePenalized
		res = Result{
			RoundID:        r.ID,
			Outcome:        string(Penalized),
			Delta:          scored.delta,
			Classification: "PENALIZED!",
			Penalized:      true,
		}
	} else {
		flagged := len(tags) > 0
		bucket, correct := Classify(r.Snippet.IsBot, flagged)
		scored = outcome{isBot: r.Snippet.IsBot, bucket: bucket, delta: SignedDelta(points, correct)}
		if err := e.cfg.Mode.apply(ctx, e.deps.Stats, r.UserID, scored, e.cfg.MaxPoints); err != nil {
			return Result{}, fmt.Errorf("apply outcome: %w", err)
		}
		// The outcome is recorded. From here on the round always finishes, so a
		// failing follow-up write cannot leave it stuck in closing.
		if err := e.deps.Users.AppendRecentSnippet(ctx, r.UserID, r.Snippet.ID); err != nil {
			log.Warn().Err(err).Str("round", r.ID).Msg("append recent snippet")
		}
		if len(tags) >= 1 {
			if err := e.deps.Markers.UpdateMarkers(ctx, tags, correct); err != nil {
				log.Warn().Err(err).Str("round", r.ID).Msg("update markers")
			}
		}
		state = StateCompleted
		res = Result{
			RoundID:        r.ID,
			Outcome:        string(bucket),
			Delta:          scored.delta,
			Classification: classification(r.user.PublicName, r.Snippet, flagged, points, e.cfg.MaxPoints),
			Correct:        correct,
		}
	}

	// Route clears the flag again, so a failure here is retried there.
	if err := e.gate.Clear(ctx, r.UserID); err != nil {
		log.Warn().Err(err).Str("round", r.ID).Msg("clear penalty")
	}
	r.finish(state, res)

	if e.deps.Journal != nil {
		if err := e.deps.Journal.RoundFinished(ctx, r.ID, state, scored.bucket, scored.delta, e.deps.Clock.Now()); err != nil {
			log.Warn().Err(err).Str("round", r.ID).Msg("journal round finish")
		}
	}
	log.Info().
		Str("round", r.ID).
		Str("user", r.UserID).
		Str("outcome", res.Outcome).
		Int("delta", res.Delta).
		Msg("round closed")
	return res, nil
}

// Route clears the penalty flag and maps the player's choice to a destination.
func (e *Engine) Route(ctx context.Context, r *Round, choice string) (string, error) {
	if !r.State().Terminal() {
		return "", ErrRoundStillLive
	}
	if err := e.gate.Clear(ctx, r.UserID); err != nil {
		return "", err
	}
	switch choice {
	case ChoiceContinue:
		return DestGame, nil
	case ChoiceQuit:
		return DestEntry, nil
	default:
		return DestEntry, nil
	}
}

// classification renders the result sentence shown to the player.
func classification(name string, s snippet.Snippet, flagged bool, points, maxPoints int) string {
	return fmt.Sprintf("%s classified %s text %s as %s with %d points certainty of %d total.",
		name, s.Truth(), s.ID, snippet.Label(flagged), points, maxPoints)
}
