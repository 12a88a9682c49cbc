package prefetch

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache is a bounded mapping in strict recency order. Get and Add move a key
// to the most recently used end; Contains and Peek do not. When the size
// exceeds the capacity, least recently used entries are evicted silently.
//
// Cache is not safe for concurrent use.
type Cache[K comparable, V any] struct {
	lru      *simplelru.LRU[K, V]
	capacity int
	onEvict  func()
}

// NewCache creates a cache holding at most capacity entries
func NewCache[K comparable, V any](capacity int) (*Cache[K, V], error) {
	c := &Cache[K, V]{capacity: capacity}
	lru, err := simplelru.NewLRU[K, V](capacity, func(K, V) {
		if c.onEvict != nil {
			c.onEvict()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.lru = lru
	return c, nil
}

// Get returns the value for key and marks it most recently used
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Peek returns the value for key without touching its recency
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	return c.lru.Peek(key)
}

// Contains reports whether key is cached without touching its recency
func (c *Cache[K, V]) Contains(key K) bool {
	return c.lru.Contains(key)
}

// Add inserts or refreshes key as most recently used, evicting if needed
func (c *Cache[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

// Keys returns the cached keys from least to most recently used
func (c *Cache[K, V]) Keys() []K {
	return c.lru.Keys()
}

// Len returns the number of cached entries
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Capacity returns the current bound
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Resize changes the bound, evicting least recently used entries down to it.
// It returns the number of evicted entries.
func (c *Cache[K, V]) Resize(capacity int) int {
	if capacity < 1 {
		capacity = 1
	}
	c.capacity = capacity
	return c.lru.Resize(capacity)
}

// Grow raises the bound so that n more entries fit without evicting anything
// currently cached. It never shrinks the cache.
func (c *Cache[K, V]) Grow(n int) {
	if need := c.lru.Len() + n; need > c.capacity {
		c.Resize(need)
	}
}
