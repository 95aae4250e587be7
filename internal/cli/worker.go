package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	var (
		dryRun bool
		resync string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror expense events into Google Sheets",
		Long: "Consumes expense events from AMQP and mirrors each owner's expenses and summary into Google Sheets.\n" +
			"With --resync the worker rewrites one owner's rows from the store and exits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := bootstrap(os.Stderr)
			if err != nil {
				return err
			}
			app, err := NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("Cleanup failed", log.FieldError, err.Error())
				}
			}()

			mirror, err := app.Mirror(ctx, dryRun)
			if err != nil {
				return err
			}
			w := worker.NewSyncWorker(app.Store, mirror, app.Summaries(), logger)

			if resync != "" {
				return runResync(ctx, cmd, app, w, resync)
			}

			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is required to consume events")
			}
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			client.WithLogger(logger)
			app.onClose(client.Close)

			return w.Run(ctx, client)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "mirror into memory instead of Google Sheets")
	cmd.Flags().StringVar(&resync, "resync", "", "rewrite the rows of the owner with this email and exit")

	return cmd
}

func runResync(ctx context.Context, cmd *cobra.Command, app *App, w *worker.SyncWorker, email string) error {
	u, err := app.Store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("find owner %s: %w", email, err)
	}
	n, err := w.ResyncOwner(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resynced %d expenses for %s\n", n, u.Email)
	return nil
}
