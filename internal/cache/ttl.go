// Package cache provides a size-bounded LRU cache whose entries expire after a TTL.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL wraps an LRU cache with per-entry expiry measured on an injected clock.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	cache *lru.Cache[K, entry[V]]
	ttl   time.Duration
	clock clockwork.Clock
}

func NewTTL[K comparable, V any](size int, ttl time.Duration, clock clockwork.Clock) (*TTL[K, V], error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &TTL[K, V]{cache: c, ttl: ttl, clock: clock}, nil
}

// Get returns the cached value for key if it has not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.cache.Get(key)
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.mu.Lock()
		c.cache.Remove(key)
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)})
}

// AddIfAbsent stores value unless key holds an unexpired entry, reporting whether it
// stored.
func (c *TTL[K, V]) AddIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if e, ok := c.cache.Peek(key); ok && now.Before(e.expiresAt) {
		return false
	}
	c.cache.Add(key, entry[V]{value: value, expiresAt: now.Add(c.ttl)})
	return true
}

func (c *TTL[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key)
}

// Purge drops every entry.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}
