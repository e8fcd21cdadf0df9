package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/restprovider/pkg/dataprovider"
)

func newListCmd() *cobra.Command {
	var (
		opts    execOptions
		page    int
		perPage int
		field   string
		order   string
		filter  string
	)

	cmd := &cobra.Command{
		Use:   "list RESOURCE",
		Short: "List one page of records (GET_LIST)",
		Example: `  restprovider list users --page 2 --per-page 10 --sort name --order DESC
  restprovider list users --filter '{"role":"admin"}' -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := dataprovider.Params{
				Pagination: &dataprovider.Pagination{Page: page, PerPage: perPage},
				Sort:       &dataprovider.Sort{Field: field, Order: order},
			}
			if filter != "" {
				if err := decodeJSON(filter, &params.Filter); err != nil {
					return fmt.Errorf("invalid --filter: %w", err)
				}
			}
			return runAction(cmd, dataprovider.GetList, args[0], params, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&page, "page", 1, "page number, starting at 1")
	f.IntVar(&perPage, "per-page", 25, "records per page")
	f.StringVar(&field, "sort", "id", "sort field")
	f.StringVar(&order, "order", dataprovider.OrderASC, "sort order: ASC or DESC")
	f.StringVar(&filter, "filter", "", "filter as a JSON object")
	addRunFlags(cmd, &opts)
	return cmd
}

func newGetCmd() *cobra.Command {
	var opts execOptions
	cmd := &cobra.Command{
		Use:   "get RESOURCE ID",
		Short: "Fetch one record (GET_ONE)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := dataprovider.Params{ID: dataprovider.ID(args[1])}
			return runAction(cmd, dataprovider.GetOne, args[0], params, opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func newCreateCmd() *cobra.Command {
	var (
		opts execOptions
		data string
	)
	cmd := &cobra.Command{
		Use:     "create RESOURCE",
		Short:   "Create a record (CREATE)",
		Example: `  restprovider create users --data '{"name":"Ada","age":36}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params dataprovider.Params
			if err := decodeData(data, true, &params); err != nil {
				return err
			}
			return runAction(cmd, dataprovider.Create, args[0], params, opts)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "record fields as a JSON object")
	addRunFlags(cmd, &opts)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		opts execOptions
		data string
	)
	cmd := &cobra.Command{
		Use:     "update RESOURCE ID",
		Short:   "Patch a record (UPDATE)",
		Example: `  restprovider update users 42 --data '{"age":37}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := dataprovider.Params{ID: dataprovider.ID(args[1])}
			if err := decodeData(data, true, &params); err != nil {
				return err
			}
			return runAction(cmd, dataprovider.Update, args[0], params, opts)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "fields to change as a JSON object")
	addRunFlags(cmd, &opts)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var (
		opts execOptions
		data string
	)
	cmd := &cobra.Command{
		Use:   "delete RESOURCE ID",
		Short: "Delete a record (DELETE)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := dataprovider.Params{ID: dataprovider.ID(args[1])}
			if err := decodeData(data, false, &params); err != nil {
				return err
			}
			return runAction(cmd, dataprovider.Delete, args[0], params, opts)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "optional request body as a JSON object")
	addRunFlags(cmd, &opts)
	return cmd
}

// decodeData fills params.Data from the --data flag.
func decodeData(s string, required bool, params *dataprovider.Params) error {
	if s == "" {
		if required {
			return fmt.Errorf("--data is required")
		}
		return nil
	}
	if err := decodeJSON(s, &params.Data); err != nil {
		return fmt.Errorf("invalid --data: %w", err)
	}
	return nil
}
