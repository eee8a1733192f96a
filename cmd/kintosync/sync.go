package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tonimelisma/kinto-sync/internal/collection"
)

// strategyValue is a pflag.Value that only accepts the three recognized
// conflict strategies, so a typo fails at flag parse time instead of
// surfacing as a confusing mid-sync behavior.
type strategyValue string

var _ pflag.Value = (*strategyValue)(nil)

func (s *strategyValue) String() string { return string(*s) }

func (s *strategyValue) Set(v string) error {
	switch collection.Strategy(v) {
	case collection.StrategyManual, collection.StrategyClientWins, collection.StrategyServerWins:
		*s = strategyValue(v)

		return nil
	default:
		return fmt.Errorf("strategy %q is not one of manual, client_wins, server_wins", v)
	}
}

func (s *strategyValue) Type() string { return "strategy" }

func newSyncCmd() *cobra.Command {
	var strategy strategyValue

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one pull-then-push-then-pull sync cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := cliContextFrom(cmd.Context())

			if strategy == "" {
				strategy = strategyValue(cc.Cfg.Sync.Strategy)
			}

			col, closer, err := buildCollection(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer closer()

			result, err := col.Sync(cmd.Context(), collection.SyncOpts{Strategy: collection.Strategy(strategy)})
			if err != nil {
				return err
			}

			if !result.OK() {
				fmt.Fprintf(os.Stderr, "sync completed with %d conflict(s) and %d error(s)\n", len(result.Conflicts), len(result.Errors))
			}

			return printJSON(result)
		},
	}

	cmd.Flags().Var(&strategy, "strategy", "conflict strategy override: manual, client_wins, server_wins")

	return cmd
}
