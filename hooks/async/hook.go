// Package asynchook decouples hook sinks from cache hot paths: events are
// handed to a bounded queue and delivered by background workers. When the
// queue is full events are dropped, never blocked on.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{MalformedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
package asynchook

import (
	"sync"

	onequery "github.com/lifeomic/one-query"
)

type Hooks struct {
	inner onequery.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ onequery.Hooks = (*Hooks)(nil)

func New(inner onequery.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Call it only after the
// cache and stores emitting into these hooks have shut down.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) MalformedKeySkipped(k string)  { h.try(func() { h.inner.MalformedKeySkipped(k) }) }
func (h *Hooks) EntrySelfHealed(k, r string)   { h.try(func() { h.inner.EntrySelfHealed(k, r) }) }
func (h *Hooks) EntryInvalidated(k string)     { h.try(func() { h.inner.EntryInvalidated(k) }) }
func (h *Hooks) EntryReset(k string)           { h.try(func() { h.inner.EntryReset(k) }) }
func (h *Hooks) UpdateSkipped(k string)        { h.try(func() { h.inner.UpdateSkipped(k) }) }
