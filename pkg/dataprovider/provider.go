package dataprovider

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider executes actions against one backend. A Provider holds no
// mutable state and is safe for concurrent use.
type Provider struct {
	baseURL    string
	transport  Transport
	primaryKey string
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	metrics    instruments
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithPrimaryKey sets the backend field renamed to "id" in responses.
// Default: "_id".
func WithPrimaryKey(field string) Option {
	return func(p *Provider) {
		if field != "" {
			p.primaryKey = field
		}
	}
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer records one span per Execute call.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Provider) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMeter records the execution count and duration of every Execute
// call, labelled by action and outcome.
func WithMeter(meter metric.Meter) Option {
	return func(p *Provider) {
		p.meter = meter
	}
}

// New creates a Provider bound to baseURL. Every request URL starts with
// baseURL followed by "/" and the resource name.
func New(baseURL string, transport Transport, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    baseURL,
		transport:  transport,
		primaryKey: DefaultPrimaryKey,
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.meter != nil {
		m, err := newInstruments(p.meter)
		if err != nil {
			p.logger.Warn("dataprovider metrics disabled", "error", err)
		} else {
			p.metrics = m
		}
	}
	return p
}

// BaseURL returns the URL prefix the Provider was built with.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// PrimaryKey returns the backend field renamed to "id".
func (p *Provider) PrimaryKey() string {
	return p.primaryKey
}

// BuildRequest produces the descriptor Execute would send.
func (p *Provider) BuildRequest(action ActionType, resource string, params Params) (Request, error) {
	return BuildRequest(p.baseURL, action, resource, params)
}

// NormalizeResponse reshapes raw using the Provider's primary key.
func (p *Provider) NormalizeResponse(action ActionType, raw *RawResponse) (*Result, error) {
	return normalizeResponse(action, raw, p.primaryKey)
}

// Execute builds the request for action, sends it through the Transport and
// normalizes the response. Errors from the Transport are returned as is.
func (p *Provider) Execute(ctx context.Context, action ActionType, resource string, params Params) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "dataprovider.Execute", trace.WithAttributes(
		attribute.String("dataprovider.action", string(action)),
		attribute.String("dataprovider.resource", resource),
	))
	defer span.End()

	start := time.Now()
	res, err := p.execute(ctx, span, action, resource, params)
	p.metrics.record(ctx, action, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (p *Provider) execute(ctx context.Context, span trace.Span, action ActionType, resource string, params Params) (*Result, error) {
	if p.transport == nil {
		return nil, ErrNoTransport
	}

	req, err := p.BuildRequest(action, resource, params)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	)
	p.logger.DebugContext(ctx, "sending request",
		"action", action,
		"resource", resource,
		"method", req.Method,
		"url", req.URL,
	)

	raw, err := p.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := p.NormalizeResponse(action, raw)
	if err != nil {
		return nil, err
	}
	if res.Total != nil {
		span.SetAttributes(attribute.Int("dataprovider.total", *res.Total))
	}
	return res, nil
}
