package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sentinel-Gate/restprovider/internal/config"
	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
)

func TestOpenStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	for _, cfg := range []config.SandboxConfig{
		{Store: "memory"},
		{Store: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "sandbox.db")},
	} {
		t.Run(cfg.Store, func(t *testing.T) {
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			defer func() { _ = closeStore() }()

			if err := store.Insert(ctx, "users", record.Document{"_id": "1"}); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if _, err := store.Get(ctx, "users", "1"); err != nil {
				t.Errorf("Get: %v", err)
			}
		})
	}
}

func TestRunSandbox_SeedAndStop(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seed, []byte("users:\n  - _id: \"1\"\n    name: Ada\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Sandbox.HTTPAddr = "127.0.0.1:0"
	cfg.Sandbox.SeedFile = seed

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runSandbox(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runSandbox: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sandbox did not stop")
	}
}

func TestRunSandbox_BadSeed(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Sandbox.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	err := runSandbox(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard)
	if err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
