// Package cmd provides the CLI commands for restprovider.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sentinel-Gate/restprovider/internal/config"
)

// NewRootCmd builds the command tree. Each call returns fresh commands and
// flags, and binds the global flags into viper.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "restprovider",
		Short: "restprovider - REST data provider client and sandbox backend",
		Long: `restprovider maps generic data actions (GET_LIST, GET_ONE, CREATE,
UPDATE, DELETE) onto a REST backend and normalizes the responses, renaming
the backend's _id field to id.

Quick start:
  1. Start the reference backend: restprovider sandbox --seed seed.yaml
  2. In another shell: restprovider --base-url http://127.0.0.1:3000 list users

Configuration:
  Config is loaded from restprovider.yaml in the current directory,
  $HOME/.restprovider/, or /etc/restprovider/.

  Environment variables can override config values with the RESTPROVIDER_ prefix.
  Example: RESTPROVIDER_BACKEND_BASE_URL=http://127.0.0.1:3000

Commands:
  exec        Run any action with JSON params
  list        GET_LIST a resource
  get         GET_ONE a record
  create      CREATE a record
  update      UPDATE a record
  delete      DELETE a record
  sandbox     Run the reference REST backend
  version     Print version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitViper(cfgFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./restprovider.yaml)")
	pf.String("base-url", "", "backend base URL (overrides backend.base_url)")
	pf.String("primary-key", "", "backend primary key renamed to id (overrides backend.primary_key)")
	pf.String("timeout", "", "per-request timeout, e.g. 10s (overrides backend.timeout)")
	pf.String("log-level", "", "log level: debug, info, warn, error (overrides log_level)")
	pf.StringP("output", "o", "", "output format: json or yaml (overrides output)")
	pf.Bool("trace", false, "export spans for each action (overrides tracing.enabled)")
	pf.Bool("otel-metrics", false, "export OpenTelemetry metrics (overrides tracing.metrics)")

	for key, flag := range map[string]string{
		"backend.base_url":    "base-url",
		"backend.primary_key": "primary-key",
		"backend.timeout":     "timeout",
		"log_level":           "log-level",
		"output":              "output",
		"tracing.enabled":     "trace",
		"tracing.metrics":     "otel-metrics",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newExecCmd(),
		newListCmd(),
		newGetCmd(),
		newCreateCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newSandboxCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
