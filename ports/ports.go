// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/worldgate/domain/run"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// RunStore persists parse outcomes.
type RunStore interface {
	// Create records a run.
	Create(ctx context.Context, r run.Run) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (run.Run, error)

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]run.Run, error)

	// ListBySource returns the most recent runs for one document.
	ListBySource(ctx context.Context, source string, limit int) ([]run.Run, error)

	// DeleteBefore removes runs created before t and returns how many.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}
