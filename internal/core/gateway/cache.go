package gateway

import (
	"sync"
	"time"
)

// Cache is a small TTL cache for gateway responses. It is an explicit
// component passed into each adapter so tests can substitute or disable
// it, and so multiple service instances never share hidden state.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// TTLs per key class. Verify answers go stale fast because the caller is
// usually about to act on them; listings tolerate more staleness.
const (
	VerifyTTL = 30 * time.Second
	ListTTL   = 60 * time.Second
)

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// Purge drops every entry. Used between test cases and by operators after
// forcing a re-verify.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
