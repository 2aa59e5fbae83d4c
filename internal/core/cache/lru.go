package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded cache that evicts the least recently used entry once it
// holds Size entries. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	entries *lru.Cache[K, V]
}

func NewLRU[K comparable, V any](size int) (*LRU[K, V], error) {
	entries, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{entries: entries}, nil
}

// Get returns the value for key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.entries.Get(key)
}

// Put adds or replaces the value for key, reporting whether an entry was
// evicted to make room for it.
func (c *LRU[K, V]) Put(key K, value V) bool {
	return c.entries.Add(key, value)
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result. Errors are not cached.
func (c *LRU[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	v, err := load(key)
	if err != nil {
		return v, err
	}
	c.entries.Add(key, v)
	return v, nil
}

func (c *LRU[K, V]) Remove(key K) {
	c.entries.Remove(key)
}

func (c *LRU[K, V]) Len() int {
	return c.entries.Len()
}
