package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/restprovider/pkg/dataprovider"
)

type execOptions struct {
	params      string
	dryRun      bool
	metricsFile string
}

func newExecCmd() *cobra.Command {
	var opts execOptions

	cmd := &cobra.Command{
		Use:   "exec ACTION RESOURCE",
		Short: "Run a data action against the backend",
		Long: `Run one data action against the configured REST backend and print the
normalized result.

ACTION is one of GET_LIST, GET_ONE, CREATE, UPDATE, DELETE. Other values are
sent with the default mapping (GET {resource}/{id}).

Params use the JSON shape:
  {"id": 1, "data": {...}, "filter": {...},
   "pagination": {"page": 1, "perPage": 10}, "sort": {"field": "id", "order": "ASC"}}

Examples:
  restprovider exec GET_LIST users --params '{"pagination":{"page":1,"perPage":10},"sort":{"field":"name","order":"ASC"}}'
  restprovider exec GET_ONE users --params '{"id":"42"}'
  restprovider exec CREATE users --params '{"data":{"name":"Ada"}}' --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := dataprovider.ParseActionType(args[0])
			if err != nil {
				return err
			}
			params, err := parseParams(opts.params)
			if err != nil {
				return err
			}
			return runAction(cmd, action, args[1], params, opts)
		},
	}

	cmd.Flags().StringVar(&opts.params, "params", "", "action params as JSON")
	addRunFlags(cmd, &opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *execOptions) {
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the HTTP request instead of sending it")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write transport metrics to this file in Prometheus text format")
}

// parseParams decodes params JSON keeping numbers as json.Number.
func parseParams(s string) (dataprovider.Params, error) {
	var p dataprovider.Params
	if strings.TrimSpace(s) == "" {
		return p, nil
	}
	if err := decodeJSON(s, &p); err != nil {
		return p, fmt.Errorf("invalid --params: %w", err)
	}
	return p, nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

// runAction executes (or with --dry-run only builds) one action and prints
// the outcome.
func runAction(cmd *cobra.Command, action dataprovider.ActionType, resource string, params dataprovider.Params, opts execOptions) error {
	sess, err := openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer sess.close(context.WithoutCancel(ctx))

	if !action.Known() {
		sess.logger.Warn("unknown action, using default GET mapping", "action", action)
	}

	format := sess.cfg.Output

	if opts.dryRun {
		req, err := sess.provider.BuildRequest(action, resource, params)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, req)
	}

	res, err := sess.provider.Execute(ctx, action, resource, params)
	if opts.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(opts.metricsFile, sess.registry); werr != nil {
			sess.logger.Warn("failed to write metrics file", "path", opts.metricsFile, "error", werr)
		}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, resource, err)
	}
	return writeOutput(cmd.OutOrStdout(), format, res)
}
