package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/kinto-sync/internal/collection"
	"github.com/tonimelisma/kinto-sync/internal/record"
)

func newCreateCmd() *cobra.Command {
	var dataJSON string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a local record from a JSON object",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := cliContextFrom(cmd.Context())

			var fields record.Record
			if err := json.Unmarshal([]byte(dataJSON), &fields); err != nil {
				return fmt.Errorf("parsing --data as JSON: %w", err)
			}

			col, closer, err := buildCollection(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closer()

			out, err := col.Create(cmd.Context(), fields, collection.CreateOpts{})
			if err != nil {
				return err
			}

			return printJSON(out.Data)
		},
	}

	cmd.Flags().StringVar(&dataJSON, "data", "{}", "record fields as a JSON object")

	return cmd
}
