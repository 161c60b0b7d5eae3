package authrouter

import "errors"

// Failure classes surfaced by the library. Wrapped errors carry the
// underlying detail; match with errors.Is.
var (
	// ErrInvalidAuthURL means the configured authorization endpoint could
	// not be parsed as a URL.
	ErrInvalidAuthURL = errors.New("invalid authorization url")

	// ErrUpstream is a transport-level failure talking to the provider or
	// the control surface.
	ErrUpstream = errors.New("upstream http error")

	// ErrExchange means the provider responded to a token exchange with a
	// non-success status or an unusable body.
	ErrExchange = errors.New("token exchange failed")

	// ErrNotFound means the request id does not resolve to a stored record.
	ErrNotFound = errors.New("request not found")

	// ErrTerminal means the request already reached a terminal state and
	// the attempted transition was rejected.
	ErrTerminal = errors.New("request already terminal")

	// ErrDenied means the user denied or cancelled the request.
	ErrDenied = errors.New("request was denied or cancelled by user")

	// ErrTimeout means no terminal state was reached before the deadline.
	ErrTimeout = errors.New("timed out waiting for authorization")

	// ErrRouter means the router returned an error record or a response
	// that violates the protocol.
	ErrRouter = errors.New("router returned error")

	// ErrCache is a filesystem or serialization failure in the token cache.
	ErrCache = errors.New("cache error")
)
