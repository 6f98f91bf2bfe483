package onequery

import (
	"bytes"
	"encoding/base64"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/lifeomic/one-query/internal/wire"
)

// Payload is the structurally-comparable identity of one request: its path
// parameters plus body/query values, keyed by name. Payloads built
// independently but with identical contents are equal for every purpose in
// this package (cache addressing, invalidation matching).
type Payload map[string]any

// Fingerprint identifies one logical request in a shared cache store.
// Two fingerprints address the same entry iff Scope, Route and Paginated are
// identical and their payloads are canonically equal. Fingerprints are
// values; build them fresh on every access instead of mutating one.
type Fingerprint struct {
	// Scope isolates one configured client from another sharing a store.
	Scope string
	// Route is the logical operation, conventionally "METHOD /path/:param".
	Route string
	// Payload carries the request's combined path parameters and body/query
	// values. May be nil for routes without inputs.
	Payload Payload
	// Paginated marks fingerprints addressing a cursor page sequence rather
	// than a single value. Paginated and non-paginated entries for the same
	// route never alias each other.
	Paginated bool
}

// KeyPrefix starts every store key owned by this library. External code must
// not write values under it; strict envelope validation treats foreign
// writes there as corruption.
const KeyPrefix = "oq:"

// Canonical CBOR keeps payload encoding deterministic regardless of map
// iteration order, which makes the encoded form usable both as a cache key
// and as the basis for structural payload equality.
var (
	payloadEnc = func() cbor.EncMode {
		opts := cbor.CoreDetEncOptions()
		opts.Time = cbor.TimeRFC3339Nano
		em, err := opts.EncMode()
		if err != nil {
			panic(err)
		}
		return em
	}()

	payloadDec = func() cbor.DecMode {
		dm, err := cbor.DecOptions{
			DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		}.DecMode()
		if err != nil {
			panic(err)
		}
		return dm
	}()
)

// MakeFingerprint builds the fingerprint for one logical request. It is pure
// and never fails; payloads that cannot be canonically encoded surface as
// errors from Key, not from construction.
func MakeFingerprint(scope, route string, payload Payload, paginated bool) Fingerprint {
	return Fingerprint{Scope: scope, Route: route, Payload: payload, Paginated: paginated}
}

// Key returns the deterministic store key for f. Structurally equal payloads
// always yield the same key.
func (f Fingerprint) Key() (string, error) {
	p, err := encodePayload(f.Payload)
	if err != nil {
		return "", err
	}
	raw, err := wire.EncodeKey(f.Scope, f.Route, f.Paginated, p)
	if err != nil {
		return "", err
	}
	return KeyPrefix + base64.RawStdEncoding.EncodeToString(raw), nil
}

// Equal reports whether f and g address the same cache entry.
func (f Fingerprint) Equal(g Fingerprint) bool {
	if f.Scope != g.Scope || f.Route != g.Route || f.Paginated != g.Paginated {
		return false
	}
	return payloadEqual(f.Payload, g.Payload)
}

// ParseFingerprint decodes a store key back into the fingerprint it was
// built from. ok is false for any key this library did not produce; callers
// iterating a shared store use this to skip foreign entries.
func ParseFingerprint(key string) (Fingerprint, bool) {
	rest, found := strings.CutPrefix(key, KeyPrefix)
	if !found {
		return Fingerprint{}, false
	}
	raw, err := base64.RawStdEncoding.DecodeString(rest)
	if err != nil {
		return Fingerprint{}, false
	}
	scope, route, paginated, pb, err := wire.DecodeKey(raw)
	if err != nil {
		return Fingerprint{}, false
	}
	payload, err := decodePayload(pb)
	if err != nil {
		return Fingerprint{}, false
	}
	return Fingerprint{Scope: scope, Route: route, Payload: payload, Paginated: paginated}, true
}

// IsFingerprint reports whether key is a well-formed fingerprint key. Shared
// stores hold arbitrary entries; nothing in this library treats a key as its
// own before this check passes.
func IsFingerprint(key string) bool {
	_, ok := ParseFingerprint(key)
	return ok
}

func encodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return payloadEnc.Marshal(nil)
	}
	return payloadEnc.Marshal(map[string]any(p))
}

func decodePayload(b []byte) (Payload, error) {
	var v any
	if err := payloadDec.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, wire.ErrNotFingerprint
	}
	return Payload(m), nil
}

// payloadEqual compares payloads by their canonical encoding, so values that
// differ only in construction order or in map identity still match.
// Unencodable payloads compare unequal to everything, including themselves.
func payloadEqual(a, b Payload) bool {
	ab, err := encodePayload(a)
	if err != nil {
		return false
	}
	bb, err := encodePayload(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
