package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/kinto-sync/internal/collection"
)

func newGetCmd() *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a local record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := cliContextFrom(cmd.Context())

			col, closer, err := buildCollection(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closer()

			out, err := col.Get(cmd.Context(), args[0], collection.GetOpts{IncludeDeleted: includeDeleted})
			if err != nil {
				return err
			}

			return printJSON(out.Data)
		},
	}

	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include virtually deleted records")

	return cmd
}
