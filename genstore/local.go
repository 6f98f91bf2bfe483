package genstore

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	gen      uint64
	bumpedAt time.Time // set only on bumps
}

// Local keeps generations in-process. An optional background loop prunes
// counters that have not been bumped within the retention window, bounding
// memory on long-lived processes with churning keys.
type Local struct {
	mu       sync.RWMutex
	counters map[string]counter

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ Store = (*Local)(nil)

// NewLocal builds an in-process generation store. When both sweepInterval
// and retention are positive, a background sweeper prunes idle counters;
// otherwise counters live until Close.
func NewLocal(sweepInterval, retention time.Duration) *Local {
	s := &Local{counters: make(map[string]counter)}
	if sweepInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(sweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Prune(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Current(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	c := s.counters[key] // zero value (0) if missing
	s.mu.RUnlock()
	return c.gen, nil
}

func (s *Local) Bump(_ context.Context, key string) (uint64, error) {
	now := time.Now()
	s.mu.Lock()
	c := s.counters[key]
	c.gen++
	c.bumpedAt = now
	s.counters[key] = c
	s.mu.Unlock()
	return c.gen, nil
}

func (s *Local) Prune(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	for k, c := range s.counters {
		if !c.bumpedAt.IsZero() && c.bumpedAt.Before(cutoff) {
			delete(s.counters, k)
		}
	}
	s.mu.Unlock()
}

func (s *Local) Close(context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.wg.Wait()
		}
	})
	return nil
}
