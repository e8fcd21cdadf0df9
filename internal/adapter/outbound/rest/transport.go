// Package rest provides the HTTP transport that carries data provider
// requests to a REST backend.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Sentinel-Gate/restprovider/pkg/dataprovider"
)

const (
	// defaultTimeout bounds a single request/response exchange.
	defaultTimeout = 30 * time.Second

	// maxResponseBodySize caps how much of a backend response is read.
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB

	// RequestIDHeader carries a per-request correlation ID to the backend.
	RequestIDHeader = "X-Request-ID"
)

// Transport sends dataprovider requests over HTTP.
// It implements the dataprovider.Transport interface.
type Transport struct {
	httpClient   *http.Client
	metrics      *Metrics
	logger       *slog.Logger
	userAgent    string
	maxBodyBytes int64
	timeout      time.Duration
	propagator   propagation.TextMapPropagator
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout. A client passed to WithHTTPClient
// is copied rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// WithLogger sets the logger for the transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		t.userAgent = ua
	}
}

// WithMaxResponseBytes caps the number of response body bytes read.
func WithMaxResponseBytes(n int64) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxBodyBytes = n
		}
	}
}

// WithPropagator sets the propagator that writes trace context headers.
// Default is the global otel propagator at request time.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(t *Transport) {
		t.propagator = p
	}
}

// NewTransport creates an HTTP transport with sane client defaults.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:       slog.Default(),
		maxBodyBytes: maxResponseBodySize,
	}

	for _, opt := range opts {
		opt(t)
	}
	if t.timeout > 0 && t.timeout != t.httpClient.Timeout {
		client := *t.httpClient
		client.Timeout = t.timeout
		t.httpClient = &client
	}

	return t
}

// Do sends req and returns the response body as the raw payload.
// Non-2xx responses are returned as *HTTPError.
func (t *Transport) Do(ctx context.Context, req dataprovider.Request) (*dataprovider.RawResponse, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidURL, req.URL)
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Accept", dataprovider.ContentTypeJSON)
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	requestID := uuid.New().String()
	httpReq.Header.Set(RequestIDHeader, requestID)
	t.textMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.observe(req.Method, "transport_error", start)
		t.logger.DebugContext(ctx, "backend request failed",
			"request_id", requestID,
			"method", req.Method,
			"url", req.URL,
			"error", err,
		)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes+1))
	if err != nil {
		t.observe(req.Method, "transport_error", start)
		return nil, fmt.Errorf("read response: %w", err)
	}
	tooLarge := int64(len(respBody)) > t.maxBodyBytes
	if tooLarge {
		respBody = respBody[:t.maxBodyBytes]
	}

	status := statusToLabel(resp.StatusCode)
	if tooLarge {
		status = "error"
	}
	t.observe(req.Method, status, start)
	t.logger.DebugContext(ctx, "backend response",
		"request_id", requestID,
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"duration", time.Since(start),
	)

	if tooLarge && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil, fmt.Errorf("%w: %s %s exceeded %d bytes", ErrResponseTooLarge, req.Method, req.URL, t.maxBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RequestID:  requestID,
		}
	}

	return &dataprovider.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Data:       respBody,
	}, nil
}

func (t *Transport) textMapPropagator() propagation.TextMapPropagator {
	if t.propagator != nil {
		return t.propagator
	}
	return otel.GetTextMapPropagator()
}

// CloseIdleConnections closes keep-alive connections held by the client.
func (t *Transport) CloseIdleConnections() {
	t.httpClient.CloseIdleConnections()
}

func (t *Transport) observe(method, status string, start time.Time) {
	if t.metrics == nil {
		return
	}
	t.metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	t.metrics.RequestsTotal.WithLabelValues(method, status).Inc()
}

// statusToLabel converts an HTTP status code to a label value.
func statusToLabel(code int) string {
	if code >= 200 && code < 300 {
		return "ok"
	}
	return "error"
}

// Compile-time check that Transport implements dataprovider.Transport.
var _ dataprovider.Transport = (*Transport)(nil)
