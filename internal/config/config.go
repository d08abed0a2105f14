package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is read from the environment (with .env support in the CLI).
type Config struct {
	// Backend selection
	Backend string

	// SQLite backend
	DBPath string

	// File backend
	SnapshotPath string

	// Recurrence
	MaxOccurrences int

	// Logging
	LogLevel slog.Level
}

// Load reads configuration from the environment, falling back to defaults.
func Load() *Config {
	return &Config{
		Backend:        getEnv("SOLDI_BACKEND", "sqlite"),
		DBPath:         getEnv("SOLDI_DB_PATH", "./data/soldi.db"),
		SnapshotPath:   getEnv("SOLDI_SNAPSHOT_PATH", "./data/soldi.json"),
		MaxOccurrences: getEnvInt("SOLDI_MAX_OCCURRENCES", 1000),
		LogLevel:       parseLevel(getEnv("SOLDI_LOG_LEVEL", "info")),
	}
}

// Validate checks the configuration and returns an aggregated error if
// anything is unusable.
func (c *Config) Validate() error {
	var errors []string

	switch c.Backend {
	case "sqlite":
		if c.DBPath == "" {
			errors = append(errors, "database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.DBPath); err != nil {
			errors = append(errors, err.Error())
		}
	case "file":
		if c.SnapshotPath == "" {
			errors = append(errors, "snapshot path cannot be empty when using file backend")
		} else if err := ensureDir(c.SnapshotPath); err != nil {
			errors = append(errors, err.Error())
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid backend '%s': must be one of [sqlite file]", c.Backend))
	}

	if c.MaxOccurrences < 1 {
		errors = append(errors, fmt.Sprintf("invalid max occurrences %d: must be at least 1", c.MaxOccurrences))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory '%s': %v", dir, err)
		}
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
