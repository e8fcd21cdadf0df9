package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a defaulted Config that passes validation.
func minimalValidConfig() *Config {
	cfg := &Config{Backend: BackendConfig{BaseURL: "http://localhost:3000"}}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	if err := minimalValidConfig().Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantMsg: "Config.LogLevel must be one of: debug info warn error",
		},
		{
			name:    "bad output",
			mutate:  func(c *Config) { c.Output = "xml" },
			wantMsg: "Config.Output must be one of: json yaml",
		},
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.Backend.BaseURL = "not a url" },
			wantMsg: "Config.Backend.BaseURL must be a valid URL",
		},
		{
			name:    "empty primary key",
			mutate:  func(c *Config) { c.Backend.PrimaryKey = "" },
			wantMsg: "Config.Backend.PrimaryKey is required",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Backend.Timeout = "-1s" },
			wantMsg: "Config.Backend.Timeout must be a positive duration",
		},
		{
			name:    "bad sandbox addr",
			mutate:  func(c *Config) { c.Sandbox.HTTPAddr = "nowhere" },
			wantMsg: "Config.Sandbox.HTTPAddr must be a valid host:port",
		},
		{
			name:    "bad store",
			mutate:  func(c *Config) { c.Sandbox.Store = "redis" },
			wantMsg: "Config.Sandbox.Store must be one of: memory sqlite",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Sandbox.Store = "sqlite" },
			wantMsg: "sqlite_path is required",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Sandbox.RateLimit = -1 },
			wantMsg: "Config.Sandbox.RateLimit must be at least 0",
		},
		{
			name:    "relative trace file",
			mutate:  func(c *Config) { c.Tracing.Output = "file://traces.json" },
			wantMsg: "Config.Tracing.Output must be 'stderr', 'stdout' or 'file://<absolute-path>'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := minimalValidConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_TraceOutputs(t *testing.T) {
	t.Parallel()

	for _, out := range []string{"stderr", "stdout", "file:///var/log/traces.json"} {
		cfg := minimalValidConfig()
		cfg.Tracing.Output = out
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with tracing.output=%q error: %v", out, err)
		}
	}
}

func TestValidate_EmptyBaseURLAllowed(t *testing.T) {
	t.Parallel()

	// The sandbox command runs without a backend.
	cfg := minimalValidConfig()
	cfg.Backend.BaseURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestRequireBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "http://localhost:3000", wantErr: false},
		{url: "https://api.example.com/v1", wantErr: false},
		{url: "", wantErr: true},
		{url: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		cfg := minimalValidConfig()
		cfg.Backend.BaseURL = tt.url
		err := cfg.RequireBackend()
		if (err != nil) != tt.wantErr {
			t.Errorf("RequireBackend(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}
