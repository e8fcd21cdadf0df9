package dataprovider

import "errors"

// Sentinel errors for use with errors.Is().
var (
	// ErrMalformedParams is returned when params lack a field the action needs.
	ErrMalformedParams = errors.New("malformed params")

	// ErrMalformedResponse is returned when the backend payload is missing or
	// does not have the shape the action expects.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoTransport is returned by Execute on a Provider built without a Transport.
	ErrNoTransport = errors.New("no transport configured")
)
