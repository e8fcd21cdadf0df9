// Package telemetry wires OpenTelemetry tracing and metrics for the CLI and
// the sandbox.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName names the tracer handed to the data provider.
const InstrumentationName = "github.com/Sentinel-Gate/restprovider"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Options configures tracing and metrics export.
type Options struct {
	// Enabled turns span export on. When false a no-op tracer is returned.
	Enabled bool
	// Writer receives spans or metrics as pretty-printed JSON.
	Writer io.Writer
	// ServiceName and Version populate the resource attributes.
	ServiceName string
	Version     string
	// Sync exports each span as it ends instead of batching.
	Sync bool
}

// Setup builds a tracer provider exporting to opts.Writer, installs it as
// the global provider together with the W3C trace-context propagator, and
// returns a tracer plus its shutdown function.
func Setup(opts Options) (trace.Tracer, ShutdownFunc, error) {
	if !opts.Enabled {
		return noop.NewTracerProvider().Tracer(InstrumentationName), func(context.Context) error { return nil }, nil
	}
	if opts.Writer == nil {
		return nil, nil, fmt.Errorf("tracing enabled without an output writer")
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(opts.Writer),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.Version),
	)

	spanOpt := sdktrace.WithBatcher(exp)
	if opts.Sync {
		spanOpt = sdktrace.WithSyncer(exp)
	}
	tp := sdktrace.NewTracerProvider(spanOpt, sdktrace.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Tracer(InstrumentationName), tp.Shutdown, nil
}
