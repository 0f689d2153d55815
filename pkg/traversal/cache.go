package traversal

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/metrics"
)

// DefaultCacheEntries bounds the context cache when no size is configured.
const DefaultCacheEntries = 10000

// ContextCache is a bounded, concurrency-safe cache of BoundedContext
// results. Keys carry the snapshot version, so entries computed before an
// update are never served afterwards.
//
// Concurrent misses for the same key are coalesced into one computation.
type ContextCache struct {
	cache  *ristretto.Cache[string, *Context]
	flight singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewContextCache creates a cache holding up to maxEntries contexts.
func NewContextCache(maxEntries int64) (*ContextCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *Context]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}
	return &ContextCache{cache: c}, nil
}

// GetOrCompute returns the cached context for key, computing and storing it
// on a miss.
func (c *ContextCache) GetOrCompute(key string, compute func() (*Context, error)) (*Context, error) {
	if ctx, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		metrics.ContextCacheRequests.WithLabelValues("hit").Inc()
		return ctx, nil
	}
	c.misses.Add(1)
	metrics.ContextCacheRequests.WithLabelValues("miss").Inc()

	v, err, _ := c.flight.Do(key, func() (any, error) {
		ctx, err := compute()
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, ctx, 1)
		return ctx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Context), nil
}

// Wait blocks until pending writes are applied. Tests use it to make Set
// visible to the next Get.
func (c *ContextCache) Wait() { c.cache.Wait() }

// Clear drops every entry.
func (c *ContextCache) Clear() { c.cache.Clear() }

// Close releases the cache goroutines.
func (c *ContextCache) Close() { c.cache.Close() }

// Stats returns the hit and miss counts since creation.
func (c *ContextCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
