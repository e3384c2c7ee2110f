// Package cache implements the remember/forget cache shared by the xtream
// and extip packages.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"golang.org/x/sync/singleflight"

	"github.com/s0up4200/iptvkit/metrics"
)

// DefaultTTL is used when New is given a ttl <= 0.
const DefaultTTL = time.Hour

// Producer computes a value on a cache miss.
type Producer func(ctx context.Context) (any, error)

// Cache stores producer results for a bounded time. Concurrent misses on
// the same key share a single producer run.
type Cache struct {
	items      *ttlcache.Cache[string, any]
	group      singleflight.Group
	defaultTTL time.Duration
}

// New creates a cache whose entries live for defaultTTL unless Remember is
// given its own ttl.
func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		items:      ttlcache.New(ttlcache.Options[string, any]{}.SetDefaultTTL(defaultTTL)),
		defaultTTL: defaultTTL,
	}
}

// Remember returns the value stored under key, or runs producer and stores
// its result for ttl. Producer errors are returned and never stored.
//
// The producer runs detached from any single caller's cancellation, so one
// caller giving up does not fail the others waiting on the same key. A
// caller whose ctx ends gets ctx.Err() while the producer finishes and
// fills the cache.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (any, error)) (any, error) {
	if value, ok := c.items.Get(key); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return value, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// another caller may have filled the key while we waited
		if value, ok := c.items.Get(key); ok {
			return value, nil
		}
		value, err := producer(detached)
		if err != nil {
			return nil, err
		}
		c.items.Set(key, value, ttl)
		return value, nil
	})

	select {
	case <-ctx.Done():
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.CacheRequests.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return res.Val, nil
	}
}

// Forget drops key.
func (c *Cache) Forget(key string) {
	c.items.Delete(key)
	c.group.Forget(key)
}

// RememberAs is Remember for typed callers. A stored value of another type
// is reported as an error rather than a panic.
func RememberAs[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	value, err := c.Remember(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return producer(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: value for %q has type %T", key, value)
	}
	return typed, nil
}
