package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTL is a key-value store whose entries expire after a fixed duration unless
// stored with their own.
type TTL[V any] struct {
	cacheInstance *gocache.Cache
}

// NewTTL returns a cache whose entries expire after ttl. A ttl of -1 keeps
// entries until they are deleted.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	cleanup := 10 * time.Second
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &TTL[V]{cacheInstance: gocache.New(ttl, cleanup)}
}

// Put sets a key/value pair in the cache with the default expiration.
func (c *TTL[V]) Put(key string, value V) {
	c.cacheInstance.SetDefault(key, value)
}

// PutFor sets a key/value pair with a specific ttl. Passing -1 will not set a ttl.
func (c *TTL[V]) PutFor(key string, value V, ttl time.Duration) {
	c.cacheInstance.Set(key, value, ttl)
}

// Get fetches a value from the cache, returning the value as well as whether
// or not the value was found (semantics similar to map).
func (c *TTL[V]) Get(key string) (V, bool) {
	v, ok := c.cacheInstance.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (c *TTL[V]) Delete(key string) {
	c.cacheInstance.Delete(key)
}

func (c *TTL[V]) Len() int {
	return c.cacheInstance.ItemCount()
}
