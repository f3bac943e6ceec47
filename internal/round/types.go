// internal/round/types.go
//
// Core type definitions for the round engine.
// Defines:
//   - State:   lifecycle of a single round.
//   - Bucket:  classification outcome of a submission.
//   - User:    the slice of a player record the engine reads.
//   - Result:  what a closed round reports back to the UI.

package round

// State is the lifecycle position of a round.
type State string

const (
	StateNotStarted State = "not_started"
	StateLive       State = "live"
	StateClosing    State = "closing" // submit in progress; ticks and tag events are ignored
	StateCompleted  State = "completed"
	StatePenalized  State = "penalized"
)

// Terminal reports whether the round has been closed by a submission.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StatePenalized
}

// Bucket is one of the four classification outcomes, or the penalty marker.
type Bucket string

const (
	TruePositive  Bucket = "true_positive"
	TrueNegative  Bucket = "true_negative"
	FalsePositive Bucket = "false_positive"
	FalseNegative Bucket = "false_negative"
	Penalized     Bucket = "PENALIZED"
)

// Classify maps ground truth and the player's verdict to a bucket.
// correct is true when the verdict matches the truth.
func Classify(isBot, flaggedAsBot bool) (b Bucket, correct bool) {
	correct = isBot == flaggedAsBot
	switch {
	case isBot && correct:
		return TruePositive, true
	case !isBot && correct:
		return TrueNegative, true
	case isBot:
		return FalseNegative, false
	default:
		return FalsePositive, false
	}
}

// User is the player record as seen by the engine.
type User struct {
	ID               string
	PublicName       string
	PenaltyPending   bool
	RecentSnippetIDs []string
}

// Result is reported to the UI once per closed round.
type Result struct {
	RoundID        string `json:"roundId"`
	Outcome        string `json:"outcome"` // bucket name or "PENALIZED"
	Delta          int    `json:"delta"`
	Classification string `json:"classification"` // human-readable sentence
	Correct        bool   `json:"correct"`
	Penalized      bool   `json:"penalized"`
}

// Route choices accepted after the result has been shown.
const (
	ChoiceContinue = "continue"
	ChoiceQuit     = "quit"
	ChoiceDismiss  = "dismiss"
)

// Destinations a route decision can send the player to.
const (
	DestGame  = "/game"
	DestEntry = "/"
)

// Session keys read by the engine.
const (
	SessionKey  = "name_hash"
	IdentityKey = "identity_file"
)
