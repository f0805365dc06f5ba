package matchservice

import "errors"

var (
	// ErrInvalidMatchID indicates a match id that cannot be sent upstream.
	ErrInvalidMatchID = errors.New("invalid match id")

	// ErrNoSnapshot indicates no refresh cycle has committed for the match yet.
	ErrNoSnapshot = errors.New("match data not available yet")

	// ErrRoundNotFound indicates a round index outside the match.
	ErrRoundNotFound = errors.New("round not found")

	// ErrRegistryClosed is returned once the watcher registry has shut down.
	ErrRegistryClosed = errors.New("watcher registry closed")

	// ErrInvalidSince indicates a since filter that could not be parsed.
	ErrInvalidSince = errors.New("invalid since filter")
)
