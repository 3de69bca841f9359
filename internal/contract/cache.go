package contract

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/resolve"
	"github.com/funvibe/boundary/internal/typesystem"
)

// Cache shares synthesized wrappers across call sites with identical
// (accessor, instantiation) keys.
//
// At most one wrapper exists per key: concurrent first-time callers collapse
// into a single synthesis via singleflight, and the losers reuse the
// winner's wrapper rather than double-synthesizing. Downstream code may rely
// on wrapper identity for sharing and memoization.
//
// There is no eviction. The key space is bounded by the program's static
// declarations and their instantiations, not by runtime data volume.
type Cache struct {
	conform typesystem.Conformance

	mu      sync.RWMutex
	entries map[string]*Wrapper
	group   singleflight.Group
	synths  atomic.Int64
}

// NewCache returns an empty cache that synthesizes wrappers checking values
// with the given conformance oracle.
func NewCache(conform typesystem.Conformance) *Cache {
	return &Cache{
		conform: conform,
		entries: make(map[string]*Wrapper),
	}
}

// Key builds the cache key for an accessor and instantiation.
func Key(acc *registry.AccessorDecl, inst resolve.Instantiation) string {
	return acc.Name + "|" + inst.Key()
}

// GetOrSynthesize returns the canonical wrapper for the key, synthesizing it
// on first use. Synthesis itself runs outside the map lock; the
// check-then-insert section is serialized per key.
//
// The second return reports whether this call performed the synthesis.
// Under contention exactly one caller sees true; hits and singleflight
// losers see false.
func (c *Cache) GetOrSynthesize(acc *registry.AccessorDecl, inst resolve.Instantiation) (*Wrapper, bool) {
	key := Key(acc, inst)

	c.mu.RLock()
	w, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return w, false
	}

	synthesized := false
	v, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		w, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return w, nil
		}

		w = Synthesize(acc, inst, c.conform)
		c.synths.Add(1)
		synthesized = true

		c.mu.Lock()
		c.entries[key] = w
		c.mu.Unlock()
		return w, nil
	})
	return v.(*Wrapper), synthesized
}

// Syntheses returns how many wrappers have been synthesized. Used by tests
// and the audit log to observe sharing.
func (c *Cache) Syntheses() int64 {
	return c.synths.Load()
}

// Len returns the number of cached wrappers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
