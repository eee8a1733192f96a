package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/kinto-sync/internal/collection"
)

func newListCmd() *cobra.Command {
	var (
		order          string
		includeDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := cliContextFrom(cmd.Context())

			col, closer, err := buildCollection(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closer()

			records, err := col.List(cmd.Context(), collection.ListOpts{
				Order:          order,
				IncludeDeleted: includeDeleted,
			})
			if err != nil {
				return err
			}

			return printJSON(records)
		},
	}

	cmd.Flags().StringVar(&order, "order", "", `sort field, optionally prefixed with "-" for descending`)
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include virtually deleted records")

	return cmd
}
