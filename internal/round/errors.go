package round

import "errors"

var (
	// ErrSessionMissing means no session key could be resolved for the request.
	ErrSessionMissing = errors.New("session missing")
	// ErrUserNotFound means the session key does not map to a known user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSnippetExhausted means the user has seen every available snippet.
	ErrSnippetExhausted = errors.New("no unseen snippet available")
	// ErrRoundNotLive is returned by Submit on a round that is no longer live.
	ErrRoundNotLive = errors.New("round not live")
	// ErrRoundStillLive is returned by Route before the round was submitted.
	ErrRoundStillLive = errors.New("round still live")
)
