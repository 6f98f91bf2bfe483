package onequery

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc performs the actual remote work for one operation. Timeouts,
// retries and cancellation all belong to the function (or the transport
// behind it); the operation only records the outcome.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Operation is the shipped Query implementation: a handle around one
// FetchFunc tracking status, data and fetch progress. Concurrent fetches of
// the same operation are deduplicated; callers racing Refetch share one
// underlying call.
//
// A failed refetch moves the status to error but keeps the previously
// resolved data, so CombineResolved contexts still see the last good value.
type Operation[V any] struct {
	fetch FetchFunc[V]
	sf    singleflight.Group

	mu          sync.Mutex
	status      Status
	data        V
	err         error
	fetching    bool
	fetchedOnce bool
}

func NewOperation[V any](fetch FetchFunc[V]) *Operation[V] {
	return &Operation[V]{fetch: fetch, status: StatusPending}
}

// Fetch runs the operation's fetch and blocks until it settles, returning
// the outcome. Concurrent callers coalesce onto one in-flight fetch and all
// observe its result.
func (o *Operation[V]) Fetch(ctx context.Context) (V, error) {
	v, err, _ := o.sf.Do("fetch", func() (any, error) {
		o.mu.Lock()
		o.fetching = true
		o.mu.Unlock()

		v, err := o.fetch(ctx)

		o.mu.Lock()
		o.fetching = false
		o.fetchedOnce = true
		if err != nil {
			o.status = StatusError
			o.err = err
		} else {
			o.status = StatusSuccess
			o.data = v
			o.err = nil
		}
		o.mu.Unlock()
		return v, err
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Refetch triggers Fetch without waiting for it.
func (o *Operation[V]) Refetch(ctx context.Context) {
	go func() { _, _ = o.Fetch(ctx) }()
}

func (o *Operation[V]) Snapshot() QuerySnapshot[V] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return QuerySnapshot[V]{
		Status:     o.status,
		Data:       o.data,
		Err:        o.err,
		Fetching:   o.fetching,
		Refetching: o.fetching && o.fetchedOnce,
	}
}

var _ Query[struct{}] = (*Operation[struct{}])(nil)
