package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Skryldev/darkroom-develop/core"
)

// CacheEntry is one retained node intermediate (spec.md §3 "Pipeline cache
// entry"): the output buffer a node produced, keyed by its fingerprint.
type CacheEntry struct {
	Fingerprint uint64
	Buffer      *core.Buffer
}

// Cache bounds the number of retained node intermediates for one pipeline
// (spec.md §3: "bounding the number of retained intermediates per
// pipeline"). It is content-addressed by node Fingerprint, not by position
// in the chain, so a node whose upstream changed but whose own fingerprint
// is unchanged still hits.
type Cache struct {
	lru *lru.Cache[uint64, *core.Buffer]
}

// NewCache returns a Cache bounded to size entries.
func NewCache(size int) (*Cache, error) {
	l, err := lru.New[uint64, *core.Buffer](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached buffer for fingerprint, if present.
func (c *Cache) Get(fingerprint uint64) (*core.Buffer, bool) {
	return c.lru.Get(fingerprint)
}

// Put stores buf under fingerprint, evicting the least recently used entry
// if the cache is at capacity.
func (c *Cache) Put(fingerprint uint64, buf *core.Buffer) {
	c.lru.Add(fingerprint, buf)
}

// Delete evicts the single entry for fingerprint, if present. Used to
// invalidate a specific node's cached result without flushing the whole
// cache (spec.md §4.6 TOP_CHANGED: "invalidate tail cache entry").
func (c *Cache) Delete(fingerprint uint64) {
	c.lru.Remove(fingerprint)
}

// Flush discards every cached entry (used when cache_obsolete is set, or on
// SYNCH/REMOVE — see Pipeline.Run).
func (c *Cache) Flush() {
	c.lru.Purge()
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int { return c.lru.Len() }
