package store

import (
	"context"
	"sync"

	onequery "github.com/lifeomic/one-query"
)

// MemoryOptions tune the in-memory store. The zero value is usable.
type MemoryOptions struct {
	Logger onequery.Logger
	Hooks  onequery.Hooks
}

// Memory is a mutex-guarded in-memory Store. It models the flat,
// heterogeneous association the matcher runs against: SetRaw plants
// arbitrary foreign entries alongside fingerprint entries, and query paths
// skip anything failing the fingerprint check instead of choking on it.
//
// Suitable for tests and small single-process deployments; it never evicts.
type Memory struct {
	log   onequery.Logger
	hooks onequery.Hooks

	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	value []byte
	stale bool
}

var _ onequery.Store = (*Memory)(nil)

func NewMemory(opts MemoryOptions) *Memory {
	return &Memory{
		log:     coalesce[onequery.Logger](opts.Logger, onequery.NopLogger{}),
		hooks:   coalesce[onequery.Hooks](opts.Hooks, onequery.NopHooks{}),
		entries: make(map[string]memEntry),
	}
}

// SetRaw writes an arbitrary key/value pair, bypassing fingerprint
// addressing. It stands in for other tenants of a shared store.
func (s *Memory) SetRaw(key string, value []byte) {
	s.mu.Lock()
	s.entries[key] = memEntry{value: value}
	s.mu.Unlock()
}

// Len reports the number of live entries, foreign ones included.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Memory) GetEntry(_ context.Context, f onequery.Fingerprint) (onequery.Entry, bool, error) {
	key, err := f.Key()
	if err != nil {
		return onequery.Entry{}, false, err
	}
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return onequery.Entry{}, false, nil
	}
	return onequery.Entry{Fingerprint: f, Value: e.value, Stale: e.stale}, true, nil
}

func (s *Memory) SetEntry(_ context.Context, f onequery.Fingerprint, value []byte) error {
	key, err := f.Key()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = memEntry{value: value}
	s.mu.Unlock()
	return nil
}

func (s *Memory) QueryEntries(_ context.Context, keep func(onequery.Fingerprint) bool) ([]onequery.Entry, error) {
	s.mu.RLock()
	snapshot := make(map[string]memEntry, len(s.entries))
	for k, e := range s.entries {
		snapshot[k] = e
	}
	s.mu.RUnlock()

	var out []onequery.Entry
	for key, e := range snapshot {
		f, ok := onequery.ParseFingerprint(key)
		if !ok {
			// not ours; shared stores legitimately hold foreign data
			s.hooks.MalformedKeySkipped(key)
			continue
		}
		if !keep(f) {
			continue
		}
		out = append(out, onequery.Entry{Fingerprint: f, Value: e.value, Stale: e.stale})
	}
	return out, nil
}

func (s *Memory) Invalidate(_ context.Context, fps []onequery.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fps {
		key, err := f.Key()
		if err != nil {
			return err
		}
		if e, ok := s.entries[key]; ok {
			e.stale = true
			s.entries[key] = e
			s.hooks.EntryInvalidated(key)
		}
	}
	return nil
}

func (s *Memory) Reset(_ context.Context, fps []onequery.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fps {
		key, err := f.Key()
		if err != nil {
			return err
		}
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			s.hooks.EntryReset(key)
		}
	}
	return nil
}

func (s *Memory) Close(context.Context) error { return nil }
