// Package backend selects and constructs the persistence provider.
package backend

import (
	"fmt"
	"log/slog"

	"soldi/internal/storage"
)

// Type names a persistence backend.
type Type string

const (
	SQLite Type = "sqlite"
	File   Type = "file"
)

func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLite, File:
		return true
	}
	return false
}

// Config holds what the factory needs to build a store.
type Config struct {
	Type         Type
	DBPath       string // sqlite backend
	SnapshotPath string // file backend
}

// New builds the configured store.
func New(cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case SQLite:
		store, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		slog.Info("Initialized SQLite backend", "path", cfg.DBPath)
		return store, nil
	case File:
		store, err := storage.NewFileStore(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("initialize file backend: %w", err)
		}
		slog.Info("Initialized file backend", "path", cfg.SnapshotPath)
		return store, nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}
}
