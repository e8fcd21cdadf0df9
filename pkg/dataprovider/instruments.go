package dataprovider

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names recorded by Execute.
const (
	MetricExecutions      = "dataprovider.executions"
	MetricExecuteDuration = "dataprovider.execute.duration"
)

// Outcome attribute values.
const (
	OutcomeOK                = "ok"
	OutcomeMalformedParams   = "malformed_params"
	OutcomeMalformedResponse = "malformed_response"
	OutcomeNoTransport       = "no_transport"
	OutcomeTransportError    = "transport_error"
)

type instruments struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (instruments, error) {
	executions, err := meter.Int64Counter(MetricExecutions,
		metric.WithDescription("Number of Execute calls by action and outcome."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return instruments{}, err
	}
	duration, err := meter.Float64Histogram(MetricExecuteDuration,
		metric.WithDescription("Duration of Execute calls, transport included."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return instruments{}, err
	}
	return instruments{executions: executions, duration: duration}, nil
}

func (in instruments) record(ctx context.Context, action ActionType, start time.Time, err error) {
	if in.executions == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("action", string(action)),
		attribute.String("outcome", outcomeOf(err)),
	)
	in.executions.Add(ctx, 1, attrs)
	in.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMalformedParams):
		return OutcomeMalformedParams
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformedResponse
	case errors.Is(err, ErrNoTransport):
		return OutcomeNoTransport
	default:
		return OutcomeTransportError
	}
}
