package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "spendlens/internal/http"
	"spendlens/internal/live"
	"spendlens/internal/log"
	"spendlens/internal/services"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := bootstrap(os.Stdout)
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

	summaries := app.CachedSummaries()
	hub := live.NewHub(logger)
	app.onClose(hub.Close)

	opts := []services.ExpenseOption{
		services.WithInvalidator(summaries),
		services.WithChangeNotifier(hub),
	}
	if events := app.Events(); events != nil {
		opts = append(opts, services.WithEventPublisher(events))
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     app.Store,
		Expenses:  services.NewExpenseService(app.Store, logger, opts...),
		Summaries: summaries,
		Auth:      app.Auth,
		Tokens:    app.Tokens,
		Hub:       hub,
		Location:  app.Location,
		Logger:    logger,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MetricsEnabled:     cfg.MetricsEnabled,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendlens server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldTimezone, app.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
