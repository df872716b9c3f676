package cache

import (
	"sync"
	"time"
)

type item struct {
	value     any
	expiresAt time.Time
}

// TTLCache memoizes hot read-path responses in-process. A zero TTL
// stores the entry without expiry.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]item
}

func NewTTLCache() *TTLCache {
	return &TTLCache{entries: make(map[string]item)}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		c.mu.Lock()
		// Re-check: a writer may have refreshed the entry in between.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(it.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return it.value, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = item{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// GetBytes reads a previously stored response body; entries of any
// other type read as misses.
func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	c.Set(key, value, ttl)
	return nil
}
