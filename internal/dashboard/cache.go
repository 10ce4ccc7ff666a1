package dashboard

import (
	"sync"
	"time"
)

// Cache is a TTL cache for query results keyed by endpoint and schema.
// Every read either returns a live entry or runs the fill function and
// stores its result. A zero TTL disables caching entirely.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time

	hits   func()
	misses func()
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		hits:    func() {},
		misses:  func() {},
	}
}

// OnHit and OnMiss register counters invoked on cache lookups.
func (c *Cache) OnHit(fn func()) {
	if fn != nil {
		c.hits = fn
	}
}

func (c *Cache) OnMiss(fn func()) {
	if fn != nil {
		c.misses = fn
	}
}

// Get returns the cached value for key, or runs fill and caches the
// result. Fill errors are never cached.
func (c *Cache) Get(key string, fill func() (interface{}, error)) (interface{}, error) {
	if c.ttl <= 0 {
		return fill()
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		c.hits()
		return entry.value, nil
	}
	c.mu.Unlock()
	c.misses()

	value, err := fill()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return value, nil
}

// Clear drops every entry. Returns the number of entries dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]cacheEntry)
	return n
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
