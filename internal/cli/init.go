// Package cli provides common initialization shared by the command
// entrypoint: logging, environment loading, configuration and the
// persistence backend.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"soldi/internal/backend"
	"soldi/internal/config"
	applog "soldi/internal/log"
	"soldi/internal/storage"
)

// LoadEnvFile loads the .env file for local use. Errors are ignored: the
// file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging and installs it as default.
func SetupLogger(level slog.Level) *applog.Logger {
	logger := applog.New(level, "soldi")
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, exiting the process when it is
// unusable.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStore builds the configured persistence backend, exiting on failure.
func InitStore(logger *applog.Logger, cfg *config.Config) storage.Store {
	store, err := backend.New(backend.Config{
		Type:         backend.Type(cfg.Backend),
		DBPath:       cfg.DBPath,
		SnapshotPath: cfg.SnapshotPath,
	})
	if err != nil {
		logger.Error("Failed to initialize persistence backend", "error", err, "backend", cfg.Backend)
		os.Exit(1)
	}
	return store
}
