package onequery

import "context"

// Status is the lifecycle discriminant of one asynchronous operation.
type Status uint8

const (
	StatusPending Status = iota
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	}
	return "unknown"
}

// QuerySnapshot is one operation's state at a single instant. Data is only
// meaningful when Status is StatusSuccess, except that handles may retain
// the previous Data across a failed refetch. Fetching covers any in-flight
// fetch; Refetching only fetches after the first.
type QuerySnapshot[V any] struct {
	Status     Status
	Data       V
	Err        error
	Fetching   bool
	Refetching bool
}

// Query is one independently progressing operation as the combinator sees
// it: a status snapshot plus a refetch trigger. Operation is the shipped
// implementation; anything owning an async fetch can satisfy it.
type Query[V any] interface {
	// Snapshot returns the current state. It must be consistent (not torn
	// across concurrent transitions) but need not stay valid afterwards.
	Snapshot() QuerySnapshot[V]

	// Refetch triggers a new fetch without waiting for it. Completion is
	// observed through subsequent snapshots, never through this call.
	Refetch(ctx context.Context)
}

// Combined is the merged state of N operations. It is recomputed, never
// stored: a Combined is a pure function of its inputs' states at the moment
// Combine was called.
type Combined[V any] struct {
	// Status merges the input statuses with precedence error > pending >
	// success.
	Status Status
	// Data holds each operation's resolved value in input order. Present
	// only when Status is StatusSuccess.
	Data []V
	// Fetching is true iff any input is currently fetching, independent of
	// Status: an operation can be settled and refetching at once.
	Fetching bool
	// Refetching is true iff any input is fetching past its initial fetch.
	Refetching bool

	queries []Query[V]
}

// Combine merges the current states of the given operations. With at least
// one errored input the aggregate is error; otherwise with at least one
// pending input it is pending; otherwise it is success and Data carries the
// resolved values position-preserving.
//
// The aggregate never owns the underlying errors; retrieve them from the
// individual handles.
func Combine[V any](queries ...Query[V]) Combined[V] {
	out := Combined[V]{Status: StatusSuccess, queries: queries}

	snaps := make([]QuerySnapshot[V], len(queries))
	for i, q := range queries {
		snaps[i] = q.Snapshot()
		if snaps[i].Fetching {
			out.Fetching = true
		}
		if snaps[i].Refetching {
			out.Refetching = true
		}
	}

	for _, s := range snaps {
		if s.Status == StatusError {
			out.Status = StatusError
			return out
		}
		if s.Status == StatusPending {
			out.Status = StatusPending
		}
	}
	if out.Status != StatusSuccess {
		return out
	}

	out.Data = make([]V, len(snaps))
	for i, s := range snaps {
		out.Data[i] = s.Data
	}
	return out
}

// CombineResolved merges operations in execution contexts that guarantee
// every input already carries a resolved value, so no pending or error
// state can reach the combinator. The aggregate is always success with Data
// taken from each snapshot; Fetching and Refetching are computed exactly as
// in Combine.
func CombineResolved[V any](queries ...Query[V]) Combined[V] {
	out := Combined[V]{Status: StatusSuccess, queries: queries}
	out.Data = make([]V, len(queries))
	for i, q := range queries {
		s := q.Snapshot()
		out.Data[i] = s.Data
		if s.Fetching {
			out.Fetching = true
		}
		if s.Refetching {
			out.Refetching = true
		}
	}
	return out
}

// RefetchAll triggers a refetch of every underlying operation, in input
// order but with no completion ordering guarantee between them. It is
// fire-and-forget; await the individual operations' own transitions.
func (c Combined[V]) RefetchAll(ctx context.Context) {
	for _, q := range c.queries {
		q.Refetch(ctx)
	}
}
