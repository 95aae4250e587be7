// Package backend opens the storage implementation selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"spendlens/internal/config"
	"spendlens/internal/log"
	"spendlens/internal/storage"
	"spendlens/internal/storage/memory"
)

// Kind names a storage implementation.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindMemory   Kind = "memory"
)

var kinds = []Kind{KindSQLite, KindPostgres, KindMemory}

// ParseKind maps a configured backend name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown data backend %q (want one of %v)", name, Kinds())
}

// Kinds lists the accepted backend names.
func Kinds() []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// Options selects and parameterizes a store.
type Options struct {
	Kind        Kind
	SQLitePath  string
	PostgresURL string

	// SeedFile is a JSON expense array loaded into a memory store for SeedOwner.
	SeedFile  string
	SeedOwner string
}

// OptionsFrom derives store options from the application config.
func OptionsFrom(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, errors.New("backend: nil config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Kind:        kind,
		SQLitePath:  cfg.SQLiteDBPath,
		PostgresURL: cfg.DatabaseURL,
	}, nil
}

func (o Options) validate() error {
	switch o.Kind {
	case KindSQLite:
		if o.SQLitePath == "" {
			return errors.New("backend: sqlite needs a database path")
		}
	case KindPostgres:
		if o.PostgresURL == "" {
			return errors.New("backend: postgres needs a database URL")
		}
	case KindMemory:
		if o.SeedFile != "" && o.SeedOwner == "" {
			return errors.New("backend: seed file set without a seed owner")
		}
	default:
		return fmt.Errorf("backend: unknown kind %q", o.Kind)
	}
	return nil
}

// Handle is an open store together with whatever must be released with it.
type Handle struct {
	Kind  Kind
	Store storage.Store
	close func() error
}

// Close releases the underlying connection or file.
func (h *Handle) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close()
}

// Open builds the store described by opts. SQL stores apply pending
// migrations while opening.
func Open(ctx context.Context, logger *log.Logger, opts Options) (*Handle, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger = logger.WithComponent(log.ComponentBackend)

	switch opts.Kind {
	case KindSQLite:
		repo, err := storage.NewSQLiteRepository(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.InfoContext(ctx, "Opened SQLite store", "db_path", opts.SQLitePath)
		return &Handle{Kind: opts.Kind, Store: repo, close: repo.Close}, nil

	case KindPostgres:
		repo, err := storage.NewPostgresRepository(opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.InfoContext(ctx, "Opened PostgreSQL store")
		return &Handle{Kind: opts.Kind, Store: repo, close: repo.Close}, nil

	default:
		store := memory.New()
		if opts.SeedFile != "" {
			n, err := store.SeedFromFile(opts.SeedFile, opts.SeedOwner)
			if err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
			logger.InfoContext(ctx, "Seeded memory store", "file", opts.SeedFile, log.FieldRecords, n)
		}
		logger.InfoContext(ctx, "Opened memory store")
		return &Handle{Kind: opts.Kind, Store: store, close: store.Close}, nil
	}
}
