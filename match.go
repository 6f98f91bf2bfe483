package onequery

// PredicateFunc decides whether one cached payload matches. It must be pure;
// the matcher may call it any number of times for the same entry.
type PredicateFunc func(Payload) bool

type predicateKind uint8

const (
	predicateNone predicateKind = iota // zero value: matches nothing
	predicateAll
	predicateAnyOf
	predicateWhere
)

// Predicate selects which cached payloads of one route an invalidation or
// reset applies to. Construct with All, AnyOf or Where; the zero value
// matches nothing, so a forgotten constructor cannot over-invalidate.
type Predicate struct {
	kind       predicateKind
	candidates []Payload
	fn         PredicateFunc
}

// All matches every entry for the route regardless of payload.
func All() Predicate { return Predicate{kind: predicateAll} }

// AnyOf matches entries whose payload is structurally equal to any of the
// given candidates. No candidates means no matches.
func AnyOf(candidates ...Payload) Predicate {
	return Predicate{kind: predicateAnyOf, candidates: candidates}
}

// Where matches entries for which fn returns true. A nil fn matches nothing.
func Where(fn PredicateFunc) Predicate { return Predicate{kind: predicateWhere, fn: fn} }

// InvalidationSpec maps a route to the predicate selecting its entries.
// Routes absent from the spec are untouched. A spec only lives for the
// duration of one match/invalidate/reset call.
type InvalidationSpec map[string]Predicate

// Match reports whether f qualifies under s for the given scope and
// pagination partition. It is total and side-effect free: foreign scopes,
// the other pagination partition, and unknown routes are rejected, never
// errors. Paginated and non-paginated entries are a hard partition; an
// entry is only ever matched within its own.
func (s InvalidationSpec) Match(f Fingerprint, scope string, paginated bool) bool {
	if f.Scope != scope || f.Paginated != paginated {
		return false
	}
	pred, ok := s[f.Route]
	if !ok {
		return false
	}
	switch pred.kind {
	case predicateAll:
		return true
	case predicateWhere:
		return pred.fn != nil && pred.fn(f.Payload)
	case predicateAnyOf:
		for _, c := range pred.candidates {
			if payloadEqual(f.Payload, c) {
				return true
			}
		}
		return false
	case predicateNone:
		return false
	}
	return false
}

// MatchFingerprints filters a snapshot of live fingerprints down to the
// subset s selects for one scope and pagination partition. Matched
// fingerprints keep their relative order.
func MatchFingerprints(s InvalidationSpec, scope string, paginated bool, candidates []Fingerprint) []Fingerprint {
	var out []Fingerprint
	for _, f := range candidates {
		if s.Match(f, scope, paginated) {
			out = append(out, f)
		}
	}
	return out
}
