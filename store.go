package onequery

import "context"

// Entry is one cached value addressed by its fingerprint. Stale entries
// still carry their last value; an invalidation marks them stale without
// discarding data, and only a reset (or external eviction) removes them.
type Entry struct {
	Fingerprint Fingerprint
	Value       []byte
	Stale       bool
}

// Store is the boundary to the external key-value store. The core never
// touches storage except through it. Implementations must serialize
// conflicting reads and writes themselves and must be safe for concurrent
// use; the core issues at most one read-then-write per logical update and
// holds no state across calls.
//
// The keyspace under KeyPrefix belongs to this library, but implementations
// may share a backing store holding arbitrary foreign entries; QueryEntries
// must surface only keys that pass the fingerprint envelope check.
//
// Two implementations ship under store/: a provider-backed store over any
// provider.Provider, and an in-memory store for tests and small processes.
type Store interface {
	// GetEntry returns the entry for f, if any. No side effects beyond
	// self-healing corrupt bytes.
	GetEntry(ctx context.Context, f Fingerprint) (Entry, bool, error)

	// SetEntry writes value under f, creating or replacing the entry.
	// A write always yields a fresh (non-stale) entry.
	SetEntry(ctx context.Context, f Fingerprint, value []byte) error

	// QueryEntries returns every live entry whose fingerprint satisfies
	// keep. The snapshot is only valid for the moment of the call; entries
	// may appear or vanish concurrently.
	QueryEntries(ctx context.Context, keep func(Fingerprint) bool) ([]Entry, error)

	// Invalidate marks the given entries stale, retaining their values.
	Invalidate(ctx context.Context, fps []Fingerprint) error

	// Reset clears the given entries entirely.
	Reset(ctx context.Context, fps []Fingerprint) error

	// Close releases resources.
	Close(ctx context.Context) error
}
