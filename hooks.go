package onequery

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; stores and clients call
// them on hot paths. Wrap with hooks/async to decouple slow sinks.
type Hooks interface {
	// A key in the store failed the fingerprint envelope check and was
	// skipped during bulk matching. Expected on shared stores; frequent
	// occurrences under KeyPrefix suggest foreign writers in our keyspace.
	MalformedKeySkipped(key string)

	// An entry was deleted by the store or client on read.
	// reason ∈ {"corrupt", "value_decode"}
	EntrySelfHealed(key, reason string)

	// An entry matched an invalidation spec and was marked stale.
	EntryInvalidated(key string)

	// An entry matched a reset spec and was cleared.
	EntryReset(key string)

	// A transform-style update targeted a fingerprint with no cached value
	// and was skipped without running the transform.
	UpdateSkipped(key string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) MalformedKeySkipped(string)     {}
func (NopHooks) EntrySelfHealed(string, string) {}
func (NopHooks) EntryInvalidated(string)        {}
func (NopHooks) EntryReset(string)              {}
func (NopHooks) UpdateSkipped(string)           {}
