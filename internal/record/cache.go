package record

import (
	"fmt"
	"sync"
)

// SharedCache holds one record per (type, id) for the lifetime of its
// env, so small reference tables are not re-read on every relation
// traversal. Single-column identities only; compound-key types are
// never cached. No expiry: the cache dies with the unit of work that
// owns it.
type SharedCache struct {
	mu      sync.RWMutex
	entries map[sharedKey]*Record
}

type sharedKey struct {
	typeName string
	id       string
}

// NewSharedCache creates an empty cache.
func NewSharedCache() *SharedCache {
	return &SharedCache{entries: make(map[sharedKey]*Record)}
}

func cacheKey(typeName string, id any) (sharedKey, bool) {
	if id == nil {
		return sharedKey{}, false
	}
	return sharedKey{typeName: typeName, id: fmt.Sprintf("%v", id)}, true
}

// Get returns the cached record for a type/id pair, or nil.
func (c *SharedCache) Get(typeName string, id any) *Record {
	key, ok := cacheKey(typeName, id)
	if !ok {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Put stores a record under its type/id pair, overwriting any earlier
// entry. Records of compound-key types are refused.
func (c *SharedCache) Put(typeName string, id any, rec *Record) bool {
	if rec == nil || len(rec.binding.KeyAttrs) != 1 {
		return false
	}
	key, ok := cacheKey(typeName, id)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = rec
	return true
}

// Refresh overwrites an existing entry with the given record, leaving
// the cache untouched when the pair was never cached.
func (c *SharedCache) Refresh(typeName string, id any, rec *Record) {
	key, ok := cacheKey(typeName, id)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, cached := c.entries[key]; cached {
		c.entries[key] = rec
	}
}

// Len returns the number of cached entries.
func (c *SharedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
