// Package genstore tracks a monotonic generation counter per storage key.
// The provider-backed store stamps entries with the generation observed at
// write time; an invalidation bumps the counter, which flips every existing
// entry for that key to stale without rewriting its bytes.
package genstore

import (
	"context"
	"time"
)

// Store abstracts where generations live. Use Local (default) for
// in-process counters, or Redis for counters shared across replicas.
type Store interface {
	// Current returns the present generation; missing => 0.
	Current(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Prune drops metadata untouched for longer than retention, where
	// applicable (no-op for Redis).
	Prune(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
