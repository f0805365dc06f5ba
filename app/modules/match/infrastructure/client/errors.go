package matchclient

import "errors"

var (
	// ErrNotFound indicates the upstream has no record for the requested key.
	ErrNotFound = errors.New("upstream record not found")

	// ErrUpstreamStatus indicates a non-success HTTP status from the upstream.
	ErrUpstreamStatus = errors.New("unexpected upstream status")

	// ErrMalformedResponse indicates a body that does not match the expected envelope.
	ErrMalformedResponse = errors.New("malformed upstream response")
)
