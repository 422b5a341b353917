package store

import (
	"context"
	"errors"
	"time"

	"MarketGauge/internal/model"
)

// ErrNotFound is returned when no record exists for the requested date.
var ErrNotFound = errors.New("store: not found")

// PriceStore persists one daily bar per calendar date.
type PriceStore interface {
	GetDaily(ctx context.Context, day time.Time) (*model.DailyBar, error)
	// PutDaily inserts or replaces the bar for its date.
	PutDaily(ctx context.Context, bar *model.DailyBar) error
	// ListDaily returns stored bars in [from, to], oldest first.
	ListDaily(ctx context.Context, from, to time.Time) ([]model.DailyBar, error)
}

// SnapshotStore caches computed snapshots keyed by date.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, day time.Time) (*model.Snapshot, error)
	// PutSnapshot inserts or replaces the snapshot for its date.
	PutSnapshot(ctx context.Context, snap *model.Snapshot) error
}

// Store is the combined persistence surface.
type Store interface {
	PriceStore
	SnapshotStore
	Close() error
}
