// Package cache memoizes computed values for a fixed time window.
//
// Concurrent misses for one key share a single computation. Errors are
// never cached.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/classroom/pkg/metrics"
)

type entry struct {
	value   any
	expires time.Time
}

// Cache is a time-windowed get-or-compute cache.
type Cache struct {
	name  string
	mu    sync.RWMutex
	items map[string]entry
	// gens counts invalidations per key; a computation started before an
	// invalidation does not store its result.
	gens  map[string]uint64
	group singleflight.Group
	now   func() time.Time
}

// New creates an empty cache. name labels its metrics.
func New(name string, opts ...Option) *Cache {
	c := &Cache{
		name:  name,
		items: make(map[string]entry),
		gens:  make(map[string]uint64),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the value cached under key if it is younger than
// ttl, otherwise it calls fn and caches the result. A ttl <= 0 always
// computes.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		metrics.RecordCacheHit(c.name)
		return v, nil
	}
	metrics.RecordCacheMiss(c.name)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		c.mu.RLock()
		gen := c.gens[key]
		c.mu.RUnlock()

		v, err := fn(ctx)
		if err != nil {
			metrics.RecordCacheComputeError(c.name)
			return nil, err
		}
		if ttl > 0 {
			c.mu.Lock()
			if c.gens[key] == gen {
				c.items[key] = entry{value: v, expires: c.now().Add(ttl)}
			}
			c.mu.Unlock()
		}
		return v, nil
	})
	return v, err
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now := c.now(); !now.Before(e.expires) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && !now.Before(cur.expires) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Invalidate drops key so the next call recomputes.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)
	metrics.RecordCacheInvalidation(c.name)
}

// Purge drops expired entries.
func (c *Cache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Typed wraps GetOrCompute for a concrete value type.
func Typed[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
