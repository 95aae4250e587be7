package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/auth"
	"spendlens/internal/backend"
	"spendlens/internal/cache"
	"spendlens/internal/config"
	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/sheets"
	gsheet "spendlens/internal/sheets/google"
	memsheet "spendlens/internal/sheets/memory"
	"spendlens/internal/storage"
)

const cacheCleanupInterval = time.Minute

// App holds the collaborators every command builds from configuration.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Store    storage.Store
	Location *time.Location
	Tokens   *auth.TokenIssuer
	Auth     *services.AuthService

	cleanups []func() error
}

// NewApp opens the configured store and builds the shared services.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts, err := backend.OptionsFrom(cfg)
	if err != nil {
		return nil, err
	}
	h, err := backend.Open(ctx, logger, opts)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenIssuer(cfg.SigningSecret(), cfg.JWTTTL, "spendlens")
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    h.Store,
		Location: loc,
		Tokens:   tokens,
		Auth:     services.NewAuthService(h.Store, tokens, cfg.TOTPIssuer, logger),
	}
	app.onClose(h.Close)
	return app, nil
}

func (a *App) onClose(fn func() error) {
	if fn != nil {
		a.cleanups = append(a.cleanups, fn)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}

// CachedSummaries returns a summary service backed by an LRU cache that is
// swept periodically until the app closes.
func (a *App) CachedSummaries() *services.SummaryService {
	c := cache.NewLRUCache[services.CachedSummary](a.Config.SummaryCacheSize, a.Config.SummaryCacheTTL)
	manager := cache.NewManager(a.Logger)
	manager.Register(c)
	manager.StartCleanup(cacheCleanupInterval)
	a.onClose(func() error {
		manager.Stop()
		return nil
	})
	return services.NewSummaryService(a.Store, c, a.Location, a.Config.MergeMonthYears, a.Logger)
}

// Summaries returns an uncached summary service, for processes that do not
// see every write.
func (a *App) Summaries() *services.SummaryService {
	return services.NewSummaryService(a.Store, nil, a.Location, a.Config.MergeMonthYears, a.Logger)
}

// Events connects to the broker when AMQP_URL is set. A failed connection
// is logged and returns nil so the server keeps running without events.
func (a *App) Events() *amqp.Client {
	if a.Config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue)
	if err != nil {
		a.Logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		return nil
	}
	client.WithLogger(a.Logger)
	a.onClose(client.Close)
	a.Logger.Info("Initialized AMQP client",
		"exchange", a.Config.AMQPExchange,
		"queue", a.Config.AMQPQueue)
	return client
}

// Mirror returns the Google Sheets mirror, or an in-memory one when dryRun
// is set.
func (a *App) Mirror(ctx context.Context, dryRun bool) (sheets.Mirror, error) {
	if dryRun {
		a.Logger.Info("Dry run: mirroring to memory")
		return memsheet.New(), nil
	}
	if !a.Config.SheetsEnabled() {
		return nil, fmt.Errorf("google sheets is not configured: set GOOGLE_SPREADSHEET_ID or use --dry-run")
	}
	return gsheet.New(ctx, gsheet.OptionsFromConfig(a.Config), a.Logger)
}
