// Package onequery implements the identity, invalidation and combination
// core of a typed request-result cache: deterministic fingerprints for
// (scope, route, payload) requests, declarative matching of live cache
// entries for invalidation or reset, copy-on-write cache updates that never
// trigger a fetch, and a precedence merge of N independent operation states.
//
// Components:
//   - Fingerprint: structured identity of one cached request; its Key() is
//     a self-describing envelope so live keys decode back for matching.
//   - InvalidationSpec / Predicate: per-route rules (all, payload list, or
//     function) evaluated against a snapshot of live fingerprints.
//   - Client: scoped point and bulk access to cached values through a Store,
//     with Replace/Transform update semantics.
//   - Combine / CombineResolved: merge operation states with precedence
//     error > pending > success.
//
// Keys:
//
//	oq:<base64 envelope> - fingerprint entries (scope, route, paginated, payload)
//
// The store behind a Client may be shared and heterogeneous; anything that
// fails the fingerprint envelope check is skipped, never touched. Store
// implementations live under store/, byte-store providers (ristretto,
// bigcache, redis) under provider/, and value codecs under codec/.
//
// Typical wiring:
//
//	st, _ := store.New(store.Options{Provider: prov})
//	cl, _ := onequery.New(onequery.Options{Scope: "api:prod", Store: st})
//
//	items, ok, _ := onequery.Get[[]Item](ctx, cl, "GET /items", nil)
//	_ = onequery.Set(ctx, cl, "GET /items/:id", onequery.Payload{"id": "1"},
//	    onequery.Transform(func(it *Item) *Item { it.Done = true; return nil }))
//	_ = cl.Invalidate(ctx, onequery.InvalidationSpec{"GET /items": onequery.All()})
package onequery
