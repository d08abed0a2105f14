// Package storage persists the application snapshot on device.
//
// Save is a full-snapshot overwrite: the last writer wins. That is fine for
// the intended single-session use but is not safe when several processes
// share the same database or file.
package storage

import (
	"context"

	"soldi/internal/core"
)

// Store loads and saves the full application state.
type Store interface {
	// Load reads the persisted snapshot. A missing or unreadable snapshot
	// yields the default state, never an error the caller must die on;
	// errors are reserved for environmental failures (permissions, I/O).
	Load(ctx context.Context) (core.Snapshot, error)

	// Save overwrites the persisted snapshot with the given state.
	Save(ctx context.Context, snap core.Snapshot) error

	Close() error
}
