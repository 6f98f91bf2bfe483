// Package store ships the two Store implementations consumed by
// onequery.Client: a provider-backed store over any byte provider and a
// self-contained in-memory store.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	onequery "github.com/lifeomic/one-query"
	"github.com/lifeomic/one-query/genstore"
	"github.com/lifeomic/one-query/internal/wire"
	pr "github.com/lifeomic/one-query/provider"
)

const (
	defaultSweep     = time.Hour
	defaultRetention = 30 * 24 * time.Hour
)

// CostFunc computes the provider cost of one entry write.
type CostFunc func(key string, raw []byte) int64

// Options tune the provider-backed store. Only Provider is required.
type Options struct {
	// Required
	Provider pr.Provider

	// Generations is where per-key generation counters live; nil defaults
	// to an in-process genstore.Local. Use genstore.NewRedis so
	// invalidations propagate across replicas sharing a provider.
	Generations genstore.Store

	Logger onequery.Logger // nil => NopLogger
	Hooks  onequery.Hooks  // nil => NopHooks

	TTL time.Duration // per-entry TTL; 0 => no expiry (eviction policy is external)

	SweepInterval time.Duration // local generation sweeps; 0 => 1h
	GenRetention  time.Duration // local generation retention; 0 => 30d

	ComputeCost CostFunc // provider cost per write; nil => constant 1
}

// providerStore layers fingerprint addressing, staleness and self-healing
// on top of a flat byte provider. Entries are stamped with the generation
// current at write time; an invalidation bumps the counter, turning every
// stamped entry stale without touching its bytes.
//
// Providers cannot enumerate keys, so the store keeps its own index of keys
// written through it. Entries evicted by the provider are pruned from the
// index on the next read that misses.
type providerStore struct {
	p     pr.Provider
	gens  genstore.Store
	log   onequery.Logger
	hooks onequery.Hooks
	ttl   time.Duration
	cost  CostFunc

	mu    sync.RWMutex
	index map[string]struct{}
}

var _ onequery.Store = (*providerStore)(nil)

func New(opts Options) (onequery.Store, error) {
	if opts.Provider == nil {
		return nil, errors.New("store: provider is required")
	}

	s := &providerStore{
		p:     opts.Provider,
		ttl:   opts.TTL,
		index: make(map[string]struct{}),
	}

	s.log = coalesce[onequery.Logger](opts.Logger, onequery.NopLogger{})
	s.hooks = coalesce[onequery.Hooks](opts.Hooks, onequery.NopHooks{})

	if opts.ComputeCost != nil {
		s.cost = opts.ComputeCost
	} else {
		s.cost = func(string, []byte) int64 { return 1 }
	}

	if opts.Generations != nil {
		s.gens = opts.Generations
	} else {
		sweep := coalesce[time.Duration](opts.SweepInterval, defaultSweep)
		retention := coalesce[time.Duration](opts.GenRetention, defaultRetention)
		s.gens = genstore.NewLocal(sweep, retention)
	}

	return s, nil
}

func (s *providerStore) GetEntry(ctx context.Context, f onequery.Fingerprint) (onequery.Entry, bool, error) {
	key, err := f.Key()
	if err != nil {
		return onequery.Entry{}, false, err
	}
	e, ok, err := s.getByKey(ctx, key, f)
	if err != nil || !ok {
		return onequery.Entry{}, false, err
	}
	return e, true, nil
}

func (s *providerStore) getByKey(ctx context.Context, key string, f onequery.Fingerprint) (onequery.Entry, bool, error) {
	raw, ok, err := s.p.Get(ctx, key)
	if err != nil {
		return onequery.Entry{}, false, err
	}
	if !ok {
		s.forget(key)
		return onequery.Entry{}, false, nil
	}
	gen, value, err := wire.DecodeEntry(raw)
	if err != nil {
		// self-heal corrupt bytes
		_ = s.p.Del(ctx, key)
		s.forget(key)
		s.hooks.EntrySelfHealed(key, "corrupt")
		return onequery.Entry{}, false, nil
	}
	return onequery.Entry{
		Fingerprint: f,
		Value:       value,
		Stale:       gen != s.currentGen(ctx, key),
	}, true, nil
}

func (s *providerStore) SetEntry(ctx context.Context, f onequery.Fingerprint, value []byte) error {
	key, err := f.Key()
	if err != nil {
		return err
	}
	env := wire.EncodeEntry(s.currentGen(ctx, key), value)
	ok, err := s.p.Set(ctx, key, env, s.cost(key, env), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("set rejected by provider (pressure)", onequery.Fields{"route": f.Route})
		return nil
	}
	s.mu.Lock()
	s.index[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *providerStore) QueryEntries(ctx context.Context, keep func(onequery.Fingerprint) bool) ([]onequery.Entry, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.index))
	for k := range s.index {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	var out []onequery.Entry
	for _, key := range keys {
		// Fingerprints are rebuilt fresh from the key on every query;
		// nothing cached between calls can go stale or be mutated.
		f, ok := onequery.ParseFingerprint(key)
		if !ok {
			s.forget(key)
			s.hooks.MalformedKeySkipped(key)
			continue
		}
		if !keep(f) {
			continue
		}
		e, ok, err := s.getByKey(ctx, key, f)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Invalidate bumps the generation of each entry, flipping it to stale while
// retaining its value. Readers keep seeing the stale value until a write
// re-stamps the entry with the new generation.
func (s *providerStore) Invalidate(ctx context.Context, fps []onequery.Fingerprint) error {
	var errs []error
	for _, f := range fps {
		key, err := f.Key()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.gens.Bump(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		s.hooks.EntryInvalidated(key)
	}
	return errors.Join(errs...)
}

func (s *providerStore) Reset(ctx context.Context, fps []onequery.Fingerprint) error {
	var errs []error
	for _, f := range fps {
		key, err := f.Key()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.gens.Bump(ctx, key); err != nil {
			errs = append(errs, err)
		}
		if err := s.p.Del(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		s.forget(key)
		s.hooks.EntryReset(key)
	}
	return errors.Join(errs...)
}

func (s *providerStore) Close(ctx context.Context) error {
	if s.gens != nil {
		_ = s.gens.Close(ctx)
	}
	return s.p.Close(ctx)
}

func (s *providerStore) currentGen(ctx context.Context, key string) uint64 {
	g, err := s.gens.Current(ctx, key)
	if err != nil {
		// fall back to 0; writes stamped now self-heal once the counter
		// store recovers
		s.log.Warn("generation read failed", onequery.Fields{"err": err})
		return 0
	}
	return g
}

func (s *providerStore) forget(key string) {
	s.mu.Lock()
	delete(s.index, key)
	s.mu.Unlock()
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
