package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sentinel-Gate/restprovider/internal/adapter/outbound/rest"
	"github.com/Sentinel-Gate/restprovider/internal/config"
	"github.com/Sentinel-Gate/restprovider/internal/telemetry"
	"github.com/Sentinel-Gate/restprovider/pkg/dataprovider"
)

// session holds everything a client command needs for one invocation.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	provider  *dataprovider.Provider
	transport *rest.Transport
	registry  *prometheus.Registry
	shutdown  func(context.Context) error
}

// openSession loads config, validates the backend section and wires the
// provider to an HTTP transport. Callers must call close.
func openSession(errOut io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}

	logger := newLogger(errOut, cfg.LogLevel)

	tel, err := setupTelemetry(cfg, errOut)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	transport := rest.NewTransport(
		rest.WithTimeout(cfg.Backend.TimeoutDuration()),
		rest.WithUserAgent(cfg.Backend.UserAgent),
		rest.WithMetrics(rest.NewMetrics(reg)),
		rest.WithLogger(logger),
	)

	provider := dataprovider.New(cfg.Backend.BaseURL, transport,
		dataprovider.WithPrimaryKey(cfg.Backend.PrimaryKey),
		dataprovider.WithLogger(logger),
		dataprovider.WithTracer(tel.tracer),
		dataprovider.WithMeter(tel.meter),
	)

	return &session{
		cfg:       cfg,
		logger:    logger,
		provider:  provider,
		transport: transport,
		registry:  reg,
		shutdown:  tel.shutdown,
	}, nil
}

func (s *session) close(ctx context.Context) {
	s.transport.CloseIdleConnections()
	if err := s.shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// loadConfig reads config with flag overrides already bound into viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if used := config.ConfigFileUsed(); used != "" {
		slog.Debug("loaded config", "path", used)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// telemetrySetup bundles the tracer and meter for one process.
type telemetrySetup struct {
	tracer   trace.Tracer
	meter    metric.Meter
	shutdown func(context.Context) error
}

// setupTelemetry resolves tracing.output and builds the tracer and meter.
// Both share one writer; the shutdown func closes a trace file if one was
// opened.
func setupTelemetry(cfg *config.Config, errOut io.Writer) (*telemetrySetup, error) {
	var (
		w         io.Writer
		closeFile func() error
	)
	if cfg.Tracing.Enabled || cfg.Tracing.Metrics {
		switch out := cfg.Tracing.Output; {
		case out == "stdout":
			w = os.Stdout
		case strings.HasPrefix(out, "file://"):
			f, err := os.OpenFile(strings.TrimPrefix(out, "file://"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open trace output: %w", err)
			}
			w, closeFile = f, f.Close
		default:
			w = errOut
		}
	}

	opts := telemetry.Options{
		Enabled:     cfg.Tracing.Enabled,
		Writer:      w,
		ServiceName: "restprovider",
		Version:     Version,
	}
	tracer, shutdownTracer, err := telemetry.Setup(opts)
	if err != nil {
		return nil, errors.Join(err, closeQuietly(closeFile))
	}

	opts.Enabled = cfg.Tracing.Metrics
	meter, shutdownMeter, err := telemetry.SetupMetrics(opts)
	if err != nil {
		return nil, errors.Join(err, shutdownTracer(context.Background()), closeQuietly(closeFile))
	}

	return &telemetrySetup{
		tracer: tracer,
		meter:  meter,
		shutdown: func(ctx context.Context) error {
			return errors.Join(shutdownTracer(ctx), shutdownMeter(ctx), closeQuietly(closeFile))
		},
	}, nil
}

func closeQuietly(closeFile func() error) error {
	if closeFile == nil {
		return nil
	}
	return closeFile()
}
