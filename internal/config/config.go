// Package config provides configuration types for restprovider.
//
// Settings come from restprovider.yaml, RESTPROVIDER_* environment variables
// and command-line flags, in increasing order of precedence.
package config

import "time"

// Config is the top-level configuration.
type Config struct {
	// Backend configures the REST backend the data provider talks to.
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// Output selects how results are printed: json or yaml. Default: json.
	Output string `yaml:"output" mapstructure:"output" validate:"oneof=json yaml"`

	// Sandbox configures the reference backend started by `restprovider sandbox`.
	Sandbox SandboxConfig `yaml:"sandbox" mapstructure:"sandbox"`

	// Tracing configures span export.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// BackendConfig configures the data provider and its HTTP transport.
type BackendConfig struct {
	// BaseURL is the backend root, e.g. "http://127.0.0.1:3000".
	// Required for commands that send requests.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	// PrimaryKey is the backend identifier field renamed to "id". Default: "_id".
	PrimaryKey string `yaml:"primary_key" mapstructure:"primary_key" validate:"required"`
	// Timeout bounds each HTTP exchange (e.g. "30s"). Default: "30s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"duration"`
	// UserAgent is sent with every request. Default: "restprovider".
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// TimeoutDuration returns Timeout parsed, or zero if it is unset or invalid.
func (b BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// SandboxConfig configures the reference backend.
type SandboxConfig struct {
	// HTTPAddr is the listen address. Default: "127.0.0.1:3000" (localhost only).
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"hostname_port"`
	// Store selects the record store: memory or sqlite. Default: memory.
	Store string `yaml:"store" mapstructure:"store" validate:"oneof=memory sqlite"`
	// SQLitePath is the database file used when Store is sqlite. Required
	// with sqlite; ":memory:" gives a throwaway database.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	// SeedFile optionally points at a YAML file of documents loaded on start.
	SeedFile string `yaml:"seed_file" mapstructure:"seed_file"`
	// RateLimit throttles each client to this many requests per second.
	// 0 disables throttling.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	// RateBurst is the number of requests a client may send at once.
	// Default: RateLimit.
	RateBurst int `yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=0"`
}

// TracingConfig configures OpenTelemetry span and metric export.
type TracingConfig struct {
	// Enabled turns tracing on. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Metrics exports OpenTelemetry metrics to the same output. Default: false.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
	// Output is "stderr", "stdout" or "file://<absolute-path>". Default: "stderr".
	Output string `yaml:"output" mapstructure:"output" validate:"trace_output"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Output == "" {
		c.Output = "json"
	}

	if c.Backend.PrimaryKey == "" {
		c.Backend.PrimaryKey = "_id"
	}
	if c.Backend.Timeout == "" {
		c.Backend.Timeout = "30s"
	}
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = "restprovider"
	}

	// Bind to localhost only; exposing the sandbox needs an explicit address.
	if c.Sandbox.HTTPAddr == "" {
		c.Sandbox.HTTPAddr = "127.0.0.1:3000"
	}
	if c.Sandbox.Store == "" {
		c.Sandbox.Store = "memory"
	}
	if c.Sandbox.RateBurst == 0 {
		c.Sandbox.RateBurst = c.Sandbox.RateLimit
	}

	if c.Tracing.Output == "" {
		c.Tracing.Output = "stderr"
	}
}
