// Package cache provides a small TTL+LRU wrapper used to front expensive
// lookups (query embeddings, search result pages) that are safe to serve
// slightly stale.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is a fixed-capacity, time-bounded cache. Entries evict on
// whichever comes first: LRU pressure at capacity, or TTL expiry.
type TTLCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// New builds a TTLCache. size and ttl are clamped to sane minimums so a
// misconfigured env var degrades to "effectively uncached" rather than
// panicking inside the LRU constructor.
func New[K comparable, V any](size int, ttl time.Duration) *TTLCache[K, V] {
	if size < 1 {
		size = 1
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return &TTLCache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the cached value and whether it was present and unexpired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set inserts or refreshes a cache entry, resetting its TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Len reports the number of live (unexpired) entries.
func (c *TTLCache[K, V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry. Used in tests and between integration runs.
func (c *TTLCache[K, V]) Purge() {
	c.lru.Purge()
}
