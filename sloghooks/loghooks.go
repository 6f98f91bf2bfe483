// Package sloghooks logs cache events through log/slog. Fingerprint keys
// embed request payloads, which may carry identifiers worth keeping out of
// logs; keys are therefore redacted to a hash prefix by default.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	onequery "github.com/lifeomic/one-query"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	MalformedEvery uint64
	SelfHealEvery  uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	malformedCtr atomic.Uint64
	selfHealCtr  atomic.Uint64
}

var _ onequery.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) MalformedKeySkipped(key string) {
	if h.l == nil || !sample(h.opts.MalformedEvery, &h.malformedCtr) {
		return
	}
	h.l.Debug("onequery.malformed_key_skipped", "key", h.redact(key))
}

func (h *Hooks) EntrySelfHealed(key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("onequery.entry_self_healed",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) EntryInvalidated(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("onequery.entry_invalidated", "key", h.redact(key))
}

func (h *Hooks) EntryReset(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("onequery.entry_reset", "key", h.redact(key))
}

func (h *Hooks) UpdateSkipped(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("onequery.update_skipped", "key", h.redact(key))
}
