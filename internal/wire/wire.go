// Package wire defines the binary envelopes used for fingerprint keys and
// cached entries. Strict validation lets stores distinguish entries this
// library owns from foreign data sharing the same keyspace: anything that
// does not carry the full envelope is rejected, never guessed at.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	version   byte = 1
	kindKey   byte = 1
	kindEntry byte = 2
)

var (
	// ErrNotFingerprint reports bytes that are not a fingerprint key envelope.
	ErrNotFingerprint = errors.New("onequery: not a fingerprint key")
	// ErrCorrupt reports a malformed cached entry envelope.
	ErrCorrupt = errors.New("onequery: corrupt entry")
	// ErrFieldTooLong reports a scope or route exceeding the envelope's
	// length fields.
	ErrFieldTooLong = errors.New("onequery: scope or route too long for key envelope")

	magic4 = [...]byte{'O', 'Q', 'R', 'Y'}
)

const flagPaginated byte = 1 << 0

func header(b []byte, kind byte) bool {
	return len(b) >= 6 && bytes.Equal(b[:4], magic4[:]) && b[4] == version && b[5] == kind
}

// Key layout:
//
//	magic(4) | ver(1) | kind(1=key) | flags(1) | slen(u16 be) | scope(slen) |
//	rlen(u16 be) | route(rlen) | plen(u32 be) | payload(plen)
//
// payload is the canonical CBOR encoding of the request payload, produced by
// the fingerprint codec. The layout is self-describing so live keys can be
// decoded back into fingerprints for predicate matching. Scope and route
// must fit their u16 length fields; a truncated length would produce a key
// that point operations accept but DecodeKey rejects, hiding the entry from
// bulk matching.
func EncodeKey(scope, route string, paginated bool, payload []byte) ([]byte, error) {
	if len(scope) > math.MaxUint16 || len(route) > math.MaxUint16 {
		return nil, ErrFieldTooLong
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 1 + 2 + len(scope) + 2 + len(route) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindKey)

	var flags byte
	if paginated {
		flags |= flagPaginated
	}
	buf.WriteByte(flags)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint16(u2[:], uint16(len(scope)))
	buf.Write(u2[:])
	buf.WriteString(scope)

	binary.BigEndian.PutUint16(u2[:], uint16(len(route)))
	buf.Write(u2[:])
	buf.WriteString(route)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])
	buf.Write(payload)

	return buf.Bytes(), nil
}

func DecodeKey(b []byte) (scope, route string, paginated bool, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 1
	if len(b) < hdr || !header(b, kindKey) {
		return "", "", false, nil, ErrNotFingerprint
	}
	flags := b[6]
	if flags&^flagPaginated != 0 {
		return "", "", false, nil, ErrNotFingerprint
	}
	paginated = flags&flagPaginated != 0

	off := 7

	scope, off, err = readString16(b, off)
	if err != nil {
		return "", "", false, nil, err
	}
	route, off, err = readString16(b, off)
	if err != nil {
		return "", "", false, nil, err
	}

	if off+4 > len(b) {
		return "", "", false, nil, ErrNotFingerprint
	}
	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen != len(b)-off { // trailing bytes are as corrupt as missing ones
		return "", "", false, nil, ErrNotFingerprint
	}

	return scope, route, paginated, b[off:], nil
}

func readString16(b []byte, off int) (string, int, error) {
	if off+2 > len(b) {
		return "", 0, ErrNotFingerprint
	}
	n := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if n > len(b)-off {
		return "", 0, ErrNotFingerprint
	}
	return string(b[off : off+n]), off + n, nil
}

// Entry layout:
//
//	magic(4) | ver(1) | kind(2=entry) | gen(u64 be) | vlen(u32 be) | value(vlen)
//
// gen is the generation counter observed when the entry was written; stores
// compare it against the current generation to detect invalidated entries.
func EncodeEntry(gen uint64, value []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(value))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(value)))
	buf.Write(u4[:])
	buf.Write(value)

	return buf.Bytes()
}

func DecodeEntry(b []byte) (gen uint64, value []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !header(b, kindEntry) {
		return 0, nil, ErrCorrupt
	}

	off := 6
	gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return 0, nil, ErrCorrupt
	}

	return gen, b[off:], nil
}
