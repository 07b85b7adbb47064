// Package fetchcache deduplicates concurrent identical network reads and
// serves time-bounded cached responses.
//
// The cache is a pure optimization: entries live in process memory only and
// are lost on restart by design. Failures are never cached, so a failed
// fetch can be retried immediately.
package fetchcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher performs the underlying network read for a cache key.
type Fetcher func(ctx context.Context) ([]byte, error)

type entry struct {
	data      []byte
	timestamp time.Time
}

// Cache is safe for concurrent use. Readers of the same key share a single
// outstanding fetch instead of racing duplicate network calls.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Fetch returns the bytes for key.
//
// Unless force is set, a cached entry younger than ttl is returned without a
// network call. Otherwise fn runs — shared with any concurrent Fetch for the
// same key, so at most one underlying call is in flight per key. A forced
// refresh bypasses the freshness check but joins (never cancels) an
// in-flight fetch. Only successful results are stored; on failure the error
// propagates and the in-flight marker is cleared so the next call retries.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, force bool, fn Fetcher) ([]byte, error) {
	if !force {
		if data, ok := c.fresh(key, ttl); ok {
			return data, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = entry{data: data, timestamp: c.now()}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Clear evicts every entry whose key matches the predicate, e.g. all keys
// under one resource prefix.
func (c *Cache) Clear(match func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) fresh(key string, ttl time.Duration) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.timestamp) >= ttl {
		return nil, false
	}
	return e.data, true
}
