package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// lookupCache stores provider responses under pvs:lookup:<provider>:<number>.
type lookupCache struct {
	cache  Cache
	logger *zap.Logger
}

// NewLookupCache creates a lookup-response cache on top of a generic Cache.
func NewLookupCache(cache Cache, logger *zap.Logger) LookupCache {
	return &lookupCache{
		cache:  cache,
		logger: logger,
	}
}

func lookupKey(provider, number string) string {
	return LookupPrefix + provider + ":" + number
}

// GetResult loads a cached provider response into dest
func (c *lookupCache) GetResult(ctx context.Context, provider, number string, dest interface{}) error {
	err := c.cache.GetJSON(ctx, lookupKey(provider, number), dest)
	if err == nil {
		c.logger.Debug("lookup cache hit",
			zap.String("provider", provider),
			zap.String("number", number))
	}
	return err
}

// SetResult stores a provider response under the provider+number key
func (c *lookupCache) SetResult(ctx context.Context, provider, number string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return c.cache.SetJSON(ctx, lookupKey(provider, number), value, ttl)
}

// noopLookupCache misses on every read. It backs deployments that run
// without Redis, where every validation goes to the providers.
type noopLookupCache struct{}

// NewNoopLookupCache returns a LookupCache that never stores anything.
func NewNoopLookupCache() LookupCache {
	return noopLookupCache{}
}

func (noopLookupCache) GetResult(_ context.Context, provider, number string, _ interface{}) error {
	return ErrCacheKeyNotFound{Key: lookupKey(provider, number)}
}

func (noopLookupCache) SetResult(context.Context, string, string, interface{}, time.Duration) error {
	return nil
}
