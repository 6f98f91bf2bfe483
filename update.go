package onequery

type updateKind uint8

const (
	updateNone updateKind = iota // zero value: no-op
	updateReplace
	updateTransform
)

// Update describes one Set operation: either a literal replacement value or
// a copy-on-write transform. The zero value does nothing.
type Update[V any] struct {
	kind  updateKind
	value V
	fn    func(*V) *V
}

// Replace writes v as the new cached value, creating the entry if absent.
func Replace[V any](v V) Update[V] {
	return Update[V]{kind: updateReplace, value: v}
}

// Transform rewrites an existing cached value through fn. fn receives a
// working copy decoded from the cached bytes; it may mutate the copy in
// place and return nil, or return a brand-new value. Both forms commit
// identically, and the previously cached value is never touched.
//
// If no value is cached for the fingerprint, the update is a no-op and fn
// never runs: there is nothing to patch that was never fetched.
func Transform[V any](fn func(*V) *V) Update[V] {
	return Update[V]{kind: updateTransform, fn: fn}
}
