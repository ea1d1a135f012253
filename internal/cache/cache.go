// Package cache is the in-memory resource cache sitting between the domain
// operations and whichever transport is active. Entries live for a fixed TTL
// and are evicted lazily, on the read that finds them expired.
package cache

import (
	"strings"
	"sync"
	"time"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	value    interface{}
	storedAt time.Time
}

type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry

	now func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or ok=false when the key was never
// set or its entry has outlived the TTL. Expired entries are removed here.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the current timestamp, overwriting any
// prior entry.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// Invalidate removes every entry whose key starts with prefix. An empty
// prefix clears the whole cache.
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		c.entries = make(map[string]entry)
		return
	}
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
