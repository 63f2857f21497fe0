// Package cache provides an in-memory caching layer for read-heavy API
// endpoints. It wraps patrickmn/go-cache for TTL-based expiry; the whole
// cache is flushed after every completed sync run so listings and stats
// never serve stale inventory.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps go-cache with the small surface the handlers need.
type Cache struct {
	store *gocache.Cache
}

// New creates a new cache with the given TTL and cleanup interval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value in the cache with default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Flush removes all items from the cache.
func (c *Cache) Flush() {
	c.store.Flush()
}

// ItemCount returns the number of items in the cache.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
