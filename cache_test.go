package onequery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeStore is an in-test Store over a plain map, mirroring the semantics
// the shipped implementations provide: invalidate marks stale, reset
// removes, queries skip foreign keys.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	raw     map[string]struct{} // foreign keys present in the shared store
	failing error               // when set, every op fails with it
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]Entry), raw: make(map[string]struct{})}
}

func (s *fakeStore) key(t *testing.T, f Fingerprint) string {
	t.Helper()
	k, err := f.Key()
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	return k
}

func (s *fakeStore) GetEntry(_ context.Context, f Fingerprint) (Entry, bool, error) {
	if s.failing != nil {
		return Entry{}, false, s.failing
	}
	k, err := f.Key()
	if err != nil {
		return Entry{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	return e, ok, nil
}

func (s *fakeStore) SetEntry(_ context.Context, f Fingerprint, value []byte) error {
	if s.failing != nil {
		return s.failing
	}
	k, err := f.Key()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = Entry{Fingerprint: f, Value: value}
	return nil
}

func (s *fakeStore) QueryEntries(_ context.Context, keep func(Fingerprint) bool) ([]Entry, error) {
	if s.failing != nil {
		return nil, s.failing
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if keep(e.Fingerprint) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) Invalidate(_ context.Context, fps []Fingerprint) error {
	if s.failing != nil {
		return s.failing
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fps {
		k, err := f.Key()
		if err != nil {
			return err
		}
		if e, ok := s.entries[k]; ok {
			e.Stale = true
			s.entries[k] = e
		}
	}
	return nil
}

func (s *fakeStore) Reset(_ context.Context, fps []Fingerprint) error {
	if s.failing != nil {
		return s.failing
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fps {
		k, err := f.Key()
		if err != nil {
			return err
		}
		delete(s.entries, k)
	}
	return nil
}

func (s *fakeStore) Close(context.Context) error { return nil }

func (s *fakeStore) stale(t *testing.T, f Fingerprint) bool {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[s.key(t, f)]
	if !ok {
		t.Fatalf("entry missing for %+v", f)
	}
	return e.Stale
}

type item struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

type recordingHooks struct {
	NopHooks
	mu       sync.Mutex
	skipped  []string
	healed   []string
}

func (h *recordingHooks) UpdateSkipped(key string) {
	h.mu.Lock()
	h.skipped = append(h.skipped, key)
	h.mu.Unlock()
}

func (h *recordingHooks) EntrySelfHealed(key, _ string) {
	h.mu.Lock()
	h.healed = append(h.healed, key)
	h.mu.Unlock()
}

func newTestClient(t *testing.T, scope string, st Store, optsOpt func(*Options)) *Client {
	t.Helper()
	opts := Options{Scope: scope, Store: st}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cl, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cl
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Store: newFakeStore()}); err == nil {
		t.Fatalf("missing scope should fail")
	}
	if _, err := New(Options{Scope: "api"}); err == nil {
		t.Fatalf("missing store should fail")
	}
}

func TestPointGetSet(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)

	p := Payload{"id": "1"}
	if _, ok, err := Get[item](ctx, cl, itemRoute, p); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	want := item{ID: "1", Name: "Ada"}
	if err := Set(ctx, cl, itemRoute, p, Replace(want)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := Get[item](ctx, cl, itemRoute, p)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	// An equal payload built independently addresses the same entry.
	if _, ok, _ := Get[item](ctx, cl, itemRoute, Payload{"id": "1"}); !ok {
		t.Fatalf("fingerprint equality should address the same entry")
	}
	// A different payload does not.
	if _, ok, _ := Get[item](ctx, cl, itemRoute, Payload{"id": "2"}); ok {
		t.Fatalf("different payload should miss")
	}
}

func TestTransformOnMissingEntryIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	hooks := &recordingHooks{}
	cl := newTestClient(t, "api", st, func(o *Options) { o.Hooks = hooks })

	ran := false
	err := Set(ctx, cl, itemRoute, Payload{"id": "missing"}, Transform(func(v *item) *item {
		ran = true
		return nil
	}))
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ran {
		t.Fatalf("transform must never run without a cached value")
	}
	if len(st.entries) != 0 {
		t.Fatalf("no entry should be created, have %d", len(st.entries))
	}
	if len(hooks.skipped) != 1 {
		t.Fatalf("expected one UpdateSkipped event, got %d", len(hooks.skipped))
	}
}

func TestTransformMutateVsReturnEquivalence(t *testing.T) {
	ctx := context.Background()
	p := Payload{"id": "1"}
	seed := item{ID: "1", Name: "Ada", Tags: []string{"x"}}

	run := func(t *testing.T, u Update[item]) item {
		st := newFakeStore()
		cl := newTestClient(t, "api", st, nil)
		if err := Set(ctx, cl, itemRoute, p, Replace(seed)); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := Set(ctx, cl, itemRoute, p, u); err != nil {
			t.Fatalf("transform: %v", err)
		}
		got, ok, err := Get[item](ctx, cl, itemRoute, p)
		if err != nil || !ok {
			t.Fatalf("Get after transform: ok=%v err=%v", ok, err)
		}
		return got
	}

	mutated := run(t, Transform(func(v *item) *item {
		v.Name = "Grace"
		v.Tags = append(v.Tags, "y")
		return nil
	}))
	returned := run(t, Transform(func(v *item) *item {
		return &item{ID: v.ID, Name: "Grace", Tags: append(append([]string(nil), v.Tags...), "y")}
	}))

	if diff := cmp.Diff(mutated, returned); diff != "" {
		t.Fatalf("mutate and return forms must converge (-mutate +return):\n%s", diff)
	}
}

func TestTransformDoesNotMutateCachedValue(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)
	p := Payload{"id": "1"}

	if err := Set(ctx, cl, itemRoute, p, Replace(item{ID: "1", Name: "Ada"})); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := string(st.entries[st.key(t, MakeFingerprint("api", itemRoute, p, false))].Value)

	// A transform that mutates its copy but commits an unrelated value.
	err := Set(ctx, cl, itemRoute, p, Transform(func(v *item) *item {
		v.Name = "scratch"
		return &item{ID: "1", Name: "Grace"}
	}))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	got, _, _ := Get[item](ctx, cl, itemRoute, p)
	if got.Name != "Grace" {
		t.Fatalf("returned value should win, got %+v", got)
	}
	if before == "" {
		t.Fatalf("expected seeded bytes")
	}
}

func TestPaginatedRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)
	p := Payload{"filter": "open"}

	seed := Paginated[item]{
		Pages:      []item{{ID: "1"}, {ID: "2"}},
		PageParams: []any{nil, "cursor-2"},
	}
	if err := SetPaginated(ctx, cl, "GET /items", p, Replace(seed)); err != nil {
		t.Fatalf("SetPaginated: %v", err)
	}

	// The paginated entry does not alias the single-value entry.
	if _, ok, _ := Get[item](ctx, cl, "GET /items", p); ok {
		t.Fatalf("single-value get must not see the paginated entry")
	}

	got, ok, err := GetPaginated[item](ctx, cl, "GET /items", p)
	if err != nil || !ok {
		t.Fatalf("GetPaginated: ok=%v err=%v", ok, err)
	}
	if len(got.Pages) != 2 || len(got.PageParams) != 2 {
		t.Fatalf("page sequence mismatch: %+v", got)
	}

	// Set against a paginated fingerprint rewrites the whole sequence.
	err = SetPaginated(ctx, cl, "GET /items", p, Transform(func(v *Paginated[item]) *Paginated[item] {
		v.Pages = v.Pages[:1]
		v.PageParams = v.PageParams[:1]
		return nil
	}))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	got, _, _ = GetPaginated[item](ctx, cl, "GET /items", p)
	if len(got.Pages) != 1 {
		t.Fatalf("expected truncated sequence, got %+v", got)
	}
}

func TestGetMany(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)

	for _, id := range []string{"1", "2", "3"} {
		if err := Set(ctx, cl, itemRoute, Payload{"id": id}, Replace(item{ID: id})); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	// Entries outside the enumeration: other route, other scope, paginated.
	if err := Set(ctx, cl, "GET /users", Payload{"id": "u"}, Replace(item{ID: "u"})); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	other := newTestClient(t, "other", st, nil)
	if err := Set(ctx, other, itemRoute, Payload{"id": "1"}, Replace(item{ID: "foreign"})); err != nil {
		t.Fatalf("seed foreign: %v", err)
	}
	if err := SetPaginated(ctx, cl, itemRoute, Payload{"id": "1"},
		Replace(Paginated[item]{Pages: []item{{ID: "1"}}})); err != nil {
		t.Fatalf("seed paginated: %v", err)
	}

	got, err := GetMany[item](ctx, cl, itemRoute)
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
	}
	seen := map[string]bool{}
	for _, cv := range got {
		id, _ := cv.Payload["id"].(string)
		if id != cv.Value.ID {
			t.Fatalf("payload/value mismatch: %+v", cv)
		}
		seen[id] = true
	}
	if !seen["1"] || !seen["2"] || !seen["3"] {
		t.Fatalf("unexpected ids: %v", seen)
	}

	pag, err := GetManyPaginated[item](ctx, cl, itemRoute)
	if err != nil {
		t.Fatalf("GetManyPaginated: %v", err)
	}
	if len(pag) != 1 || len(pag[0].Value.Pages) != 1 {
		t.Fatalf("expected the one paginated entry, got %+v", pag)
	}
}

func TestInvalidateMarksOnlyMatchedStale(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)

	one := MakeFingerprint("api", itemRoute, Payload{"id": "1"}, false)
	two := MakeFingerprint("api", itemRoute, Payload{"id": "2"}, false)
	for _, id := range []string{"1", "2"} {
		if err := Set(ctx, cl, itemRoute, Payload{"id": id}, Replace(item{ID: id})); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	if err := cl.Invalidate(ctx, InvalidationSpec{itemRoute: AnyOf(Payload{"id": "1"})}); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if !st.stale(t, one) {
		t.Fatalf("matched entry should be stale")
	}
	if st.stale(t, two) {
		t.Fatalf("unmatched entry should stay fresh")
	}

	// Stale entries still serve their value.
	if got, ok, _ := Get[item](ctx, cl, itemRoute, Payload{"id": "1"}); !ok || got.ID != "1" {
		t.Fatalf("stale entry should still read, ok=%v got=%+v", ok, got)
	}
}

func TestResetClearsMatched(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)

	for _, id := range []string{"1", "2"} {
		if err := Set(ctx, cl, itemRoute, Payload{"id": id}, Replace(item{ID: id})); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	if err := cl.Reset(ctx, InvalidationSpec{itemRoute: AnyOf(Payload{"id": "1"})}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok, _ := Get[item](ctx, cl, itemRoute, Payload{"id": "1"}); ok {
		t.Fatalf("reset entry should be gone")
	}
	if _, ok, _ := Get[item](ctx, cl, itemRoute, Payload{"id": "2"}); !ok {
		t.Fatalf("unmatched entry should survive")
	}
}

func TestInvalidatePartitionsDoNotCross(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)
	p := Payload{"id": "1"}

	if err := Set(ctx, cl, itemRoute, p, Replace(item{ID: "1"})); err != nil {
		t.Fatalf("seed single: %v", err)
	}
	if err := SetPaginated(ctx, cl, itemRoute, p,
		Replace(Paginated[item]{Pages: []item{{ID: "1"}}})); err != nil {
		t.Fatalf("seed paginated: %v", err)
	}

	single := MakeFingerprint("api", itemRoute, p, false)
	paged := MakeFingerprint("api", itemRoute, p, true)

	if err := cl.Invalidate(ctx, InvalidationSpec{itemRoute: All()}); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if !st.stale(t, single) {
		t.Fatalf("single entry should be stale")
	}
	if st.stale(t, paged) {
		t.Fatalf("paginated entry must not be touched by a non-paginated invalidate")
	}

	if err := cl.InvalidatePaginated(ctx, InvalidationSpec{itemRoute: All()}); err != nil {
		t.Fatalf("InvalidatePaginated: %v", err)
	}
	if !st.stale(t, paged) {
		t.Fatalf("paginated invalidate should reach the paginated entry")
	}
}

func TestMatchReturnsFingerprints(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)

	for _, id := range []string{"1", "2"} {
		if err := Set(ctx, cl, itemRoute, Payload{"id": id}, Replace(item{ID: id})); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	got, err := cl.Match(ctx, InvalidationSpec{itemRoute: All()}, false)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
}

func TestInvalidateWrapsStoreErrors(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, nil)
	if err := Set(ctx, cl, itemRoute, Payload{"id": "1"}, Replace(item{ID: "1"})); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("backend down")
	st.failing = boom

	err := cl.Invalidate(ctx, InvalidationSpec{itemRoute: All()})
	var ie *InvalidationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidationError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause should unwrap, got %v", err)
	}
}

func TestDisabledClient(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cl := newTestClient(t, "api", st, func(o *Options) { o.Disabled = true })

	if err := Set(ctx, cl, itemRoute, Payload{"id": "1"}, Replace(item{ID: "1"})); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(st.entries) != 0 {
		t.Fatalf("disabled client must not write")
	}
	if _, ok, err := Get[item](ctx, cl, itemRoute, Payload{"id": "1"}); err != nil || ok {
		t.Fatalf("disabled client reads as all-miss, ok=%v err=%v", ok, err)
	}
	if err := cl.Invalidate(ctx, InvalidationSpec{itemRoute: All()}); err != nil {
		t.Fatalf("Invalidate on disabled client: %v", err)
	}
}
