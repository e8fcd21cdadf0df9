package dataprovider

import (
	"context"
	"encoding/json"
	"net/http"
)

// RawResponse is what a Transport hands back for a successful exchange.
// Data is the backend payload: a JSON array for GET_LIST, a JSON object
// otherwise.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Data       json.RawMessage
}

// Transport sends a Request to the backend. Implementations decide what
// counts as failure (for example a non-2xx status) and own retries,
// timeouts and authentication.
type Transport interface {
	Do(ctx context.Context, req Request) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (*RawResponse, error)

// Do calls f(ctx, req).
func (f TransportFunc) Do(ctx context.Context, req Request) (*RawResponse, error) {
	return f(ctx, req)
}
