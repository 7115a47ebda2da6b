package sizes

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/orderdesk/orderdesk-backend/pkg/redis"
)

// cacheStore is the subset of the redis client the cache needs.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Cache is an explicit, invalidatable lookup cache for size normalization.
// It is passed to the Normalizer by reference; there is no package-level
// state.
type Cache struct {
	store cacheStore
	ttl   time.Duration
}

// NewCache builds the size cache with the given TTL.
func NewCache(store cacheStore, ttl time.Duration) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Cache{store: store, ttl: ttl}, nil
}

// Lookup returns the cached canonical size, or ok=false on a miss.
func (c *Cache) Lookup(ctx context.Context, vendor, rawLabel string) (string, bool) {
	val, err := c.store.Get(ctx, pkgredis.SizeKey(vendor, rawLabel))
	if err != nil {
		if !errors.Is(err, pkgredis.ErrNotFound) {
			// Treat a degraded cache as a miss; the DB remains authoritative.
			return "", false
		}
		return "", false
	}
	return val, true
}

// Store caches one resolved mapping.
func (c *Cache) Store(ctx context.Context, vendor, rawLabel, canonical string) error {
	return c.store.Set(ctx, pkgredis.SizeKey(vendor, rawLabel), canonical, c.ttl)
}

// Evict drops one cached mapping.
func (c *Cache) Evict(ctx context.Context, vendor, rawLabel string) error {
	return c.store.Del(ctx, pkgredis.SizeKey(vendor, rawLabel))
}

// Invalidate drops every cached size mapping.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.DeleteByPrefix(ctx, pkgredis.SizePrefix())
}
