package pipeline

import (
	"github.com/willf/bitset"

	"github.com/Skryldev/darkroom-develop/core"
)

// Change-flag bits (spec.md §4.6: "States are a bitset"). A pipeline's
// pending change flags determine which cached intermediates, if any, must be
// discarded before the next run.
const (
	bitTopChanged uint = iota
	bitZoomed
	bitSynch
	bitRemove
)

// ChangeFlags is the bitset of pending changes accumulated since a
// pipeline's last run (spec.md §4.6).
type ChangeFlags struct {
	bits *bitset.BitSet

	// CacheObsolete is tracked alongside the bitset rather than as one more
	// bit: it dominates every other flag (see Open Question decision in
	// DESIGN.md) and is cleared independently of the bitset's Reset.
	CacheObsolete bool

	// tailKeys records which (op, instance-priority) entries raised
	// TOP_CHANGED since the last run, so Run can invalidate only that
	// node's cache entry and everything ranked after it (spec.md §4.6's
	// table names the tail entry; a node downstream of it shares the same
	// fingerprint across edits since Fingerprint does not hash upstream
	// content, so it must be invalidated too or it would serve a stale
	// result forever).
	tailKeys []core.Key
}

// NewChangeFlags returns an empty flag set (UNCHANGED).
func NewChangeFlags() *ChangeFlags {
	return &ChangeFlags{bits: bitset.New(4)}
}

// SetTopChanged raises TOP_CHANGED for the history entry identified by key
// (spec.md §4.2's coalesced-append case).
func (c *ChangeFlags) SetTopChanged(key core.Key) {
	c.bits.Set(bitTopChanged)
	c.tailKeys = append(c.tailKeys, key)
}

func (c *ChangeFlags) SetZoomed() { c.bits.Set(bitZoomed) }
func (c *ChangeFlags) SetSynch()  { c.bits.Set(bitSynch) }
func (c *ChangeFlags) SetRemove() { c.bits.Set(bitRemove) }

func (c *ChangeFlags) TopChanged() bool { return c.bits.Test(bitTopChanged) }
func (c *ChangeFlags) Zoomed() bool     { return c.bits.Test(bitZoomed) }
func (c *ChangeFlags) Synch() bool      { return c.bits.Test(bitSynch) }
func (c *ChangeFlags) Remove() bool     { return c.bits.Test(bitRemove) }

// TailKeys returns the entries that raised TOP_CHANGED since the last run.
func (c *ChangeFlags) TailKeys() []core.Key {
	return append([]core.Key(nil), c.tailKeys...)
}

// Unchanged reports whether no flag is set and the cache is not obsolete —
// the run can be entirely served from cache.
func (c *ChangeFlags) Unchanged() bool {
	return c.bits.None() && !c.CacheObsolete
}

// Reset clears every bit, the tail-key list, and the obsolete flag after a
// run has accounted for them.
func (c *ChangeFlags) Reset() {
	c.bits.ClearAll()
	c.CacheObsolete = false
	c.tailKeys = nil
}

// Clone returns an independent copy (used when a pipeline hands its pending
// flags to a worker goroutine for the duration of one run).
func (c *ChangeFlags) Clone() *ChangeFlags {
	return &ChangeFlags{
		bits:          c.bits.Clone(),
		CacheObsolete: c.CacheObsolete,
		tailKeys:      append([]core.Key(nil), c.tailKeys...),
	}
}
