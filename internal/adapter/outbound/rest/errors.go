package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidURL is returned when a request URL cannot be sent over HTTP.
var ErrInvalidURL = errors.New("invalid request url")

// ErrResponseTooLarge is returned when a successful response body is larger
// than the transport's limit. Error bodies are truncated instead.
var ErrResponseTooLarge = errors.New("response body too large")

// ErrNotFound matches an *HTTPError with status 404 via errors.Is.
var ErrNotFound = errors.New("not found")

// HTTPError is returned when the backend answers with a non-2xx status.
type HTTPError struct {
	// Method and URL identify the failed request.
	Method string
	URL    string
	// StatusCode is the HTTP status returned by the backend.
	StatusCode int
	// Body is the (size-limited) response body.
	Body []byte
	// RequestID is the X-Request-ID sent with the request.
	RequestID string
}

// Error returns a human-readable description of the failed exchange.
func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, string(e.Body))
}

// Is supports errors.Is(err, ErrNotFound).
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
