package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spendlens/internal/backend"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(os.Stderr)
			if err != nil {
				return err
			}
			opts, err := backend.OptionsFrom(cfg)
			if err != nil {
				return err
			}
			if opts.Kind == backend.KindMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory backend has no schema to migrate")
				return nil
			}

			// opening a SQL backend applies pending migrations
			h, err := backend.Open(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			var version uint
			if v, ok := h.Store.(interface{ SchemaVersion() uint }); ok {
				version = v.SchemaVersion()
			}
			if err := h.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s, schema version %d)\n", opts.Kind, version)
			return nil
		},
	}
}
