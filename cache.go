package onequery

import (
	"context"
)

// CachedValue pairs one enumerated cache entry's payload with its decoded
// value.
type CachedValue[V any] struct {
	Payload Payload
	Value   V
}

// Get is a point read of the cached value for (route, payload) within the
// client's scope. It has no side effects beyond self-healing undecodable
// bytes. Stale values are still returned; only a reset or eviction makes an
// entry absent.
func Get[V any](ctx context.Context, cl *Client, route string, payload Payload) (V, bool, error) {
	return getValue[V](ctx, cl, route, payload, false)
}

// GetPaginated is Get for the paginated variant of (route, payload): the
// cached value is the whole page sequence.
func GetPaginated[V any](ctx context.Context, cl *Client, route string, payload Payload) (Paginated[V], bool, error) {
	return getValue[Paginated[V]](ctx, cl, route, payload, true)
}

// Set writes or rewrites the cached value for (route, payload). Writes are
// purely local cache mutations: no fetch is triggered, and any live
// consumer of the fingerprint observes the new value without a round trip.
func Set[V any](ctx context.Context, cl *Client, route string, payload Payload, u Update[V]) error {
	return setValue[V](ctx, cl, route, payload, false, u)
}

// SetPaginated is Set against the paginated variant of (route, payload).
// The update addresses the whole page sequence.
func SetPaginated[V any](ctx context.Context, cl *Client, route string, payload Payload, u Update[Paginated[V]]) error {
	return setValue[Paginated[V]](ctx, cl, route, payload, true, u)
}

// GetMany enumerates every non-paginated cached entry for route within the
// client's scope, regardless of payload. Entries whose bytes no longer
// decode are healed and skipped rather than failing the enumeration.
func GetMany[V any](ctx context.Context, cl *Client, route string) ([]CachedValue[V], error) {
	return getMany[V](ctx, cl, route, false)
}

// GetManyPaginated is GetMany over the paginated partition of route.
func GetManyPaginated[V any](ctx context.Context, cl *Client, route string) ([]CachedValue[Paginated[V]], error) {
	return getMany[Paginated[V]](ctx, cl, route, true)
}

func getValue[V any](ctx context.Context, cl *Client, route string, payload Payload, paginated bool) (V, bool, error) {
	var zero V
	if !cl.enabled {
		return zero, false, nil
	}
	f := MakeFingerprint(cl.scope, route, payload, paginated)
	e, ok, err := cl.store.GetEntry(ctx, f)
	if err != nil || !ok {
		return zero, false, err
	}
	var v V
	if err := cl.codec.Unmarshal(e.Value, &v); err != nil {
		cl.selfHeal(ctx, f, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func setValue[V any](ctx context.Context, cl *Client, route string, payload Payload, paginated bool, u Update[V]) error {
	if !cl.enabled {
		return nil
	}
	f := MakeFingerprint(cl.scope, route, payload, paginated)

	switch u.kind {
	case updateReplace:
		b, err := cl.codec.Marshal(u.value)
		if err != nil {
			return err
		}
		return cl.store.SetEntry(ctx, f, b)

	case updateTransform:
		if u.fn == nil {
			return nil
		}
		e, ok, err := cl.store.GetEntry(ctx, f)
		if err != nil {
			return err
		}
		if !ok {
			// nothing was fetched, so there is nothing to patch
			key, kerr := f.Key()
			if kerr == nil {
				cl.hooks.UpdateSkipped(key)
			}
			cl.log.Debug("transform skipped (no cached value)", Fields{"route": route})
			return nil
		}
		// Decoding the stored bytes yields an independent working copy;
		// the cached value itself is never handed to the transform.
		var work V
		if err := cl.codec.Unmarshal(e.Value, &work); err != nil {
			cl.selfHeal(ctx, f, "value_decode")
			return nil
		}
		committed := &work
		if out := u.fn(&work); out != nil {
			committed = out
		}
		b, err := cl.codec.Marshal(*committed)
		if err != nil {
			return err
		}
		return cl.store.SetEntry(ctx, f, b)

	case updateNone:
		return nil
	}
	return nil
}

func getMany[V any](ctx context.Context, cl *Client, route string, paginated bool) ([]CachedValue[V], error) {
	if !cl.enabled {
		return nil, nil
	}
	entries, err := cl.store.QueryEntries(ctx, func(f Fingerprint) bool {
		return f.Scope == cl.scope && f.Route == route && f.Paginated == paginated
	})
	if err != nil {
		return nil, err
	}
	out := make([]CachedValue[V], 0, len(entries))
	for _, e := range entries {
		var v V
		if err := cl.codec.Unmarshal(e.Value, &v); err != nil {
			cl.selfHeal(ctx, e.Fingerprint, "value_decode")
			continue
		}
		out = append(out, CachedValue[V]{Payload: e.Fingerprint.Payload, Value: v})
	}
	return out, nil
}

func (cl *Client) selfHeal(ctx context.Context, f Fingerprint, reason string) {
	_ = cl.store.Reset(ctx, []Fingerprint{f})
	if key, err := f.Key(); err == nil {
		cl.hooks.EntrySelfHealed(key, reason)
	}
	cl.log.Debug("healed undecodable entry", Fields{"route": f.Route, "reason": reason})
}

// Match evaluates spec against the live fingerprints of one pagination
// partition within the client's scope and returns the matched subset. It is
// read-only; Invalidate and Reset consume the same result set.
func (cl *Client) Match(ctx context.Context, spec InvalidationSpec, paginated bool) ([]Fingerprint, error) {
	if !cl.enabled {
		return nil, nil
	}
	entries, err := cl.store.QueryEntries(ctx, func(f Fingerprint) bool {
		return spec.Match(f, cl.scope, paginated)
	})
	if err != nil {
		return nil, err
	}
	fps := make([]Fingerprint, 0, len(entries))
	for _, e := range entries {
		fps = append(fps, e.Fingerprint)
	}
	return fps, nil
}

// Invalidate marks every non-paginated entry matching spec as stale. Values
// are retained; whoever owns the affected operations decides when to
// refetch.
func (cl *Client) Invalidate(ctx context.Context, spec InvalidationSpec) error {
	return cl.bulk(ctx, spec, false, cl.store.Invalidate, "invalidate")
}

// InvalidatePaginated is Invalidate over the paginated partition.
func (cl *Client) InvalidatePaginated(ctx context.Context, spec InvalidationSpec) error {
	return cl.bulk(ctx, spec, true, cl.store.Invalidate, "invalidate")
}

// Reset clears every non-paginated entry matching spec.
func (cl *Client) Reset(ctx context.Context, spec InvalidationSpec) error {
	return cl.bulk(ctx, spec, false, cl.store.Reset, "reset")
}

// ResetPaginated is Reset over the paginated partition.
func (cl *Client) ResetPaginated(ctx context.Context, spec InvalidationSpec) error {
	return cl.bulk(ctx, spec, true, cl.store.Reset, "reset")
}

func (cl *Client) bulk(ctx context.Context, spec InvalidationSpec, paginated bool,
	op func(context.Context, []Fingerprint) error, name string) error {
	if !cl.enabled {
		return nil
	}
	matched, err := cl.Match(ctx, spec, paginated)
	if err != nil {
		return &InvalidationError{Scope: cl.scope, Paginated: paginated, QueryErr: err}
	}
	if len(matched) == 0 {
		return nil
	}
	if err := op(ctx, matched); err != nil {
		return &InvalidationError{Scope: cl.scope, Paginated: paginated, Matched: len(matched), StoreErr: err}
	}
	cl.log.Debug(name+" applied", Fields{"matched": len(matched), "paginated": paginated})
	return nil
}
