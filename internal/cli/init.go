// Package cli holds the spendlens command tree and the startup helpers
// shared by the server and worker entrypoints.
package cli

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"

	"spendlens/internal/config"
	"spendlens/internal/log"
)

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Writer: w,
	})
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads environment files for local development. Missing files
// are ignored and variables already set win.
func LoadEnvFile(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bootstrap loads the validated configuration and the logger writing to w.
func bootstrap(w io.Writer) (*config.Config, *log.Logger, error) {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := SetupLogger(cfg, w)
	if err != nil {
		return nil, nil, err
	}
	if cfg.JWTSecret == "" && cfg.DataBackend == "memory" {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}
	return cfg, logger, nil
}
