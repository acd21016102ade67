// Package cache implements the process-wide TTL cache shared by the upstream
// fetchers. It is an explicitly constructed, injectable object: created once at
// startup and passed down, never a package-level singleton.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skysight/aurora-forecast/internal/metrics"
)

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) fresh(now time.Time) bool {
	return now.Before(e.storedAt.Add(e.ttl))
}

// EntryInfo describes a cached entry without exposing its value.
type EntryInfo struct {
	AgeSeconds float64 `json:"age_seconds"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// Stats is a point-in-time snapshot of cache state. Hits and misses are
// lifetime totals; Size and Entries reflect current state only.
type Stats struct {
	Hits    uint64               `json:"hits"`
	Misses  uint64               `json:"misses"`
	Size    int                  `json:"size"`
	Entries map[string]EntryInfo `json:"entries"`
}

// Cache is a concurrency-safe get-or-populate keyed cache with per-key TTLs.
// Population is serialized per key: concurrent requesters for the same stale
// key share a single in-flight fetch. A failed fetch stores nothing; an expired
// entry is evicted, never served as a fallback.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	hits    uint64
	misses  uint64

	group   singleflight.Group
	metrics *metrics.Metrics

	now func() time.Time
}

// New creates an empty Cache. metrics may be nil.
func New(m *metrics.Metrics) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		metrics: m,
		now:     time.Now,
	}
}

// GetOrFetch returns the fresh cached value for key, or invokes fetch to
// populate it. The fetch failure propagates to the caller untransformed;
// serving outdated data silently is judged worse than a visible error.
// A fetch abandoned through context cancellation leaves no entry behind.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have populated the key while we waited for the lock.
		if v, ok := c.peek(key); ok {
			return v, nil
		}

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.store(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Fetch is a typed wrapper around Cache.GetOrFetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// lookup returns the fresh value for key and records a hit or miss. Expired
// entries are evicted on sight.
func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && e.fresh(c.now()) {
		c.hits++
		c.metrics.CacheHit(key)
		return e.value, true
	}

	if ok {
		delete(c.entries, key)
		c.metrics.SetCacheSize(len(c.entries))
	}
	c.misses++
	c.metrics.CacheMiss(key)
	return nil, false
}

// peek checks freshness without touching the hit/miss counters. Used for the
// re-check inside a single-flight group so a joined caller is not double-counted.
func (c *Cache) peek(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.fresh(c.now()) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, storedAt: c.now(), ttl: ttl}
	c.metrics.SetCacheSize(len(c.entries))
}

// Stats returns lifetime hit/miss counters and a snapshot of entry metadata.
// Values themselves are never exposed.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	entries := make(map[string]EntryInfo, len(c.entries))
	for key, e := range c.entries {
		entries[key] = EntryInfo{
			AgeSeconds: now.Sub(e.storedAt).Seconds(),
			TTLSeconds: e.ttl.Seconds(),
		}
	}

	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    len(c.entries),
		Entries: entries,
	}
}

// Clear evicts all entries and returns how many were removed. Hit/miss counters
// are lifetime totals and survive a clear so stats stay meaningful for
// debugging across clears.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]entry)
	c.metrics.SetCacheSize(0)
	return removed
}
