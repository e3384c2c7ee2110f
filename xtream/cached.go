package xtream

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is the remember/forget collaborator used by CachedClient.
type Cache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (any, error)) (any, error)
	Forget(key string)
}

// CachedClient caches category and listing payloads, which change
// infrequently. Detail lookups and Authenticate always hit the provider.
type CachedClient struct {
	*Client
	cache Cache
	ttl   time.Duration
}

// NewCachedClient wraps client with cache. A ttl <= 0 uses the cache's default.
func NewCachedClient(client *Client, cache Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{
		Client: client,
		cache:  cache,
		ttl:    ttl,
	}
}

// GetLiveCategories retrieves the live channel categories through the cache
func (c *CachedClient) GetLiveCategories(ctx context.Context) (Payload, error) {
	return c.remember(ctx, ActionLiveCategories)
}

// GetLiveStreams retrieves live channels through the cache
func (c *CachedClient) GetLiveStreams(ctx context.Context, categoryID string) (Payload, error) {
	return c.remember(ctx, ActionLiveStreams, optional("category_id", categoryID)...)
}

// GetVodCategories retrieves the VOD categories through the cache
func (c *CachedClient) GetVodCategories(ctx context.Context) (Payload, error) {
	return c.remember(ctx, ActionVodCategories)
}

// GetVodStreams retrieves VOD items through the cache
func (c *CachedClient) GetVodStreams(ctx context.Context, categoryID string) (Payload, error) {
	return c.remember(ctx, ActionVodStreams, optional("category_id", categoryID)...)
}

// GetSeriesCategories retrieves the series categories through the cache
func (c *CachedClient) GetSeriesCategories(ctx context.Context) (Payload, error) {
	return c.remember(ctx, ActionSeriesCategories)
}

// GetSeries retrieves series through the cache
func (c *CachedClient) GetSeries(ctx context.Context, categoryID string) (Payload, error) {
	return c.remember(ctx, ActionSeries, optional("category_id", categoryID)...)
}

// Invalidate forgets the cached payload of one listing.
func (c *CachedClient) Invalidate(action string, extra ...Param) {
	if c == nil || c.Client == nil || !c.session.initialized {
		return
	}
	c.cache.Forget(c.cacheKey(action, extra...))
}

func (c *CachedClient) remember(ctx context.Context, action string, extra ...Param) (Payload, error) {
	if c == nil || c.Client == nil || !c.session.initialized {
		return nil, ErrNotInitialized
	}
	rawURL := c.BuildURL(action, extra...)
	payload, err := c.cache.Remember(ctx, c.cacheKey(action, extra...), c.ttl, func(ctx context.Context) (any, error) {
		return c.call(ctx, action, rawURL)
	})
	if err != nil {
		var retryErr *RetryError
		if cause := ctx.Err(); cause != nil && !errors.As(err, &retryErr) {
			// the cache gave up waiting on our behalf
			return nil, &RetryError{Action: action, Last: &TransportError{Err: cause}, Cause: cause}
		}
		return nil, err
	}
	return payload, nil
}

// cacheKey hashes the built URL so credentials never appear in keys.
func (c *CachedClient) cacheKey(action string, extra ...Param) string {
	return "xtream:" + strconv.FormatUint(xxhash.Sum64String(c.BuildURL(action, extra...)), 16)
}
