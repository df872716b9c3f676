package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Entries written without a TTL still age out after a day, so stale
// intraday data cannot survive into the next session.
const defaultMemoryTTL = 24 * time.Hour

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache implements Service with an in-process map and LRU eviction.
type MemoryCache struct {
	items   map[string]*memoryEntry
	touched map[string]time.Time
	mu      sync.RWMutex
	maxSize int
	janitor *time.Ticker
}

// NewMemoryCache creates an in-memory cache and starts its sweep goroutine.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*memoryEntry),
		touched: make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		janitor: time.NewTicker(cfg.CleanupInterval),
	}

	go mc.sweep()
	return mc
}

// setLocked inserts an entry; the caller must hold mu.
func (mc *MemoryCache) setLocked(key string, value interface{}, expiration time.Duration) {
	if len(mc.items) >= mc.maxSize {
		mc.evictOldest()
	}

	now := time.Now()
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}

	mc.items[key] = &memoryEntry{value: value, expiresAt: now.Add(expiration)}
	mc.touched[key] = now
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.setLocked(key, value, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.items[key]
	if !ok || entry.expired(time.Now()) {
		if ok {
			delete(mc.items, key)
			delete(mc.touched, key)
		}
		return ErrCacheMiss
	}

	mc.touched[key] = time.Now()

	switch d := dest.(type) {
	case *string:
		if s, ok := entry.value.(string); ok {
			*d = s
			return nil
		}
	case *interface{}:
		*d = entry.value
		return nil
	}

	// Typed reads round-trip through JSON, matching the Redis path.
	b, err := json.Marshal(entry.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.items, key)
		delete(mc.touched, key)
	}
	return nil
}

// DeleteByPattern drops everything; the in-process layer is small enough
// that pattern matching is not worth the bookkeeping.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.items = make(map[string]*memoryEntry)
	mc.touched = make(map[string]time.Time)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	now := time.Now()
	for _, key := range keys {
		if entry, ok := mc.items[key]; ok && !entry.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.items[key]
	if !ok {
		mc.setLocked(key, int64(1), 0)
		return 1, nil
	}

	n, ok := entry.value.(int64)
	if !ok {
		return 0, fmt.Errorf("cache: increment on non-integer value")
	}
	entry.value = n + 1
	return n + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if entry, ok := mc.items[key]; ok {
		entry.expiresAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(_ context.Context, values map[string]interface{}, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for key, value := range values {
		mc.setLocked(key, value, expiration)
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	now := time.Now()
	results := make(map[string]string)
	for _, key := range keys {
		if entry, ok := mc.items[key]; ok && !entry.expired(now) {
			if s, ok := entry.value.(string); ok {
				results[key] = s
			}
		}
	}
	return results, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if entry, ok := mc.items[key]; ok && !entry.expired(time.Now()) {
		return false, nil
	}

	mc.setLocked(key, "locked", ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest removes the least recently touched key; the caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var victim string
	oldest := time.Now()

	for key, at := range mc.touched {
		if at.Before(oldest) {
			oldest = at
			victim = key
		}
	}

	if victim != "" {
		delete(mc.items, victim)
		delete(mc.touched, victim)
	}
}

func (mc *MemoryCache) sweep() {
	for range mc.janitor.C {
		now := time.Now()

		mc.mu.Lock()
		for key, entry := range mc.items {
			if entry.expired(now) {
				delete(mc.items, key)
				delete(mc.touched, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweep ticker.
func (mc *MemoryCache) Close() error {
	if mc.janitor != nil {
		mc.janitor.Stop()
	}
	return nil
}
