package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// SetupMetrics builds a meter provider that writes collected OpenTelemetry
// metrics to opts.Writer when the provider shuts down (and periodically for
// long-running processes). It returns a no-op meter when disabled.
func SetupMetrics(opts Options) (metric.Meter, ShutdownFunc, error) {
	if !opts.Enabled {
		return metricnoop.NewMeterProvider().Meter(InstrumentationName), func(context.Context) error { return nil }, nil
	}
	if opts.Writer == nil {
		return nil, nil, fmt.Errorf("metrics enabled without an output writer")
	}

	exp, err := stdoutmetric.New(
		stdoutmetric.WithWriter(opts.Writer),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", opts.ServiceName),
			attribute.String("service.version", opts.Version),
		)),
	)
	otel.SetMeterProvider(mp)

	return mp.Meter(InstrumentationName), mp.Shutdown, nil
}
