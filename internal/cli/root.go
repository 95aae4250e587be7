package cli

import (
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "spendlens" command and registers all
// subcommands.
func NewRootCmd() *cobra.Command {
	var (
		envFile    string
		configFile string
	)

	root := &cobra.Command{
		Use:           "spendlens",
		Short:         "Expense tracking with time-series summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			LoadEnvFile(envFile)
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			decimal.MarshalJSONWithoutQuotes = true
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before configuration")
	root.PersistentFlags().StringVar(&configFile, "config", "", "TOML configuration file (sets CONFIG_FILE)")

	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newSummaryCmd(),
		newUserCmd(),
	)

	return root
}
