package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpin "github.com/Sentinel-Gate/restprovider/internal/adapter/inbound/http"
	"github.com/Sentinel-Gate/restprovider/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/restprovider/internal/adapter/outbound/sqlite"
	"github.com/Sentinel-Gate/restprovider/internal/config"
	"github.com/Sentinel-Gate/restprovider/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
	"github.com/Sentinel-Gate/restprovider/internal/service"
)

func newSandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run the reference REST backend",
		Long: `Run a small REST backend that speaks the dialect the data provider
targets: records keyed by _id, and list queries with limit, skip, query (a
JSON equality filter) and sort (a field, prefixed with - for descending).

Routes:
  GET    /{collection}        list records
  POST   /{collection}        create a record
  GET    /{collection}/{id}   fetch a record
  PATCH  /{collection}/{id}   merge fields into a record
  DELETE /{collection}/{id}   delete a record, returning it
  GET    /health              store health
  GET    /metrics             Prometheus metrics

Examples:
  restprovider sandbox --seed testdata/seed.yaml
  restprovider sandbox --store sqlite --sqlite-path ./sandbox.db --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			ctx, stop := signal.NotifyContext(baseContext(cmd), gracefulSignals()...)
			defer stop()

			return runSandbox(ctx, cfg, logger, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address (overrides sandbox.http_addr)")
	f.String("store", "", "record store: memory or sqlite (overrides sandbox.store)")
	f.String("sqlite-path", "", "SQLite database file (overrides sandbox.sqlite_path)")
	f.String("seed", "", "YAML file of records to load at startup (overrides sandbox.seed_file)")
	f.Int("rate-limit", 0, "requests per second allowed per client, 0 for unlimited (overrides sandbox.rate_limit)")
	for key, flag := range map[string]string{
		"sandbox.http_addr":   "addr",
		"sandbox.store":       "store",
		"sandbox.sqlite_path": "sqlite-path",
		"sandbox.seed_file":   "seed",
		"sandbox.rate_limit":  "rate-limit",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runSandbox serves the sandbox until ctx is cancelled.
func runSandbox(ctx context.Context, cfg *config.Config, logger *slog.Logger, errOut io.Writer) error {
	store, closeStore, err := openStore(ctx, cfg.Sandbox, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close record store", "error", err)
		}
	}()

	records := service.NewRecordService(store, logger)
	if cfg.Sandbox.SeedFile != "" {
		data, err := httpin.LoadSeedFile(cfg.Sandbox.SeedFile)
		if err != nil {
			return err
		}
		if _, err := records.Seed(ctx, data); err != nil {
			return err
		}
	}

	tel, err := setupTelemetry(cfg, errOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	limiter := memory.NewRateLimiter()
	limiter.StartCleanup(ctx)
	defer limiter.Stop()

	srv := httpin.NewServer(records,
		httpin.WithAddr(cfg.Sandbox.HTTPAddr),
		httpin.WithLogger(logger),
		httpin.WithHealthChecker(httpin.NewHealthChecker(store, Version)),
		httpin.WithTracer(tel.tracer),
		httpin.WithRateLimit(limiter, ratelimit.Config{
			Rate:   cfg.Sandbox.RateLimit,
			Burst:  cfg.Sandbox.RateBurst,
			Period: time.Second,
		}),
	)

	logger.Info("sandbox ready",
		"addr", cfg.Sandbox.HTTPAddr,
		"store", cfg.Sandbox.Store,
		"rate_limit", cfg.Sandbox.RateLimit,
		"version", Version,
	)
	return srv.Start(ctx)
}

// openStore builds the configured record store and its close func.
func openStore(ctx context.Context, cfg config.SandboxConfig, logger *slog.Logger) (record.Store, func() error, error) {
	switch cfg.Store {
	case "sqlite":
		s, err := sqlite.NewRecordStore(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	default:
		return memory.NewRecordStore(), func() error { return nil }, nil
	}
}
