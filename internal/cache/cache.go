// Package cache keeps slow-changing lookups, such as host identity, out of
// the request path.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

// Cache is a typed expiring cache over ttlcache
type Cache[V any] struct {
	items *ttlcache.Cache[string, V]
}

// New creates a cache whose entries expire after ttl
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		items: ttlcache.New(
			ttlcache.WithTTL[string, V](ttl),
			ttlcache.WithDisableTouchOnHit[string, V](),
		),
	}
}

// Start runs the expiry loop until Stop is called
func (c *Cache[V]) Start() {
	c.items.Start()
}

// Stop ends the expiry loop
func (c *Cache[V]) Stop() {
	c.items.Stop()
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.items.Set(key, value, ttlcache.DefaultTTL)
}

// Get returns the unexpired value stored under key
func (c *Cache[V]) Get(key string) (V, bool) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// GetOrSet returns the cached value or stores the result of fn. Errors are
// not cached.
func (c *Cache[V]) GetOrSet(key string, fn func() (V, error)) (V, error) {
	if value, found := c.Get(key); found {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, value)
	return value, nil
}

// Len returns the number of stored values, expired or not
func (c *Cache[V]) Len() int {
	return c.items.Len()
}

const (
	KeyHost = "host"

	// HostTTL bounds how stale /api/info may be; uptime is the only field
	// that moves.
	HostTTL = 30 * time.Second
)

// HostFunc loads host information
type HostFunc func(ctx context.Context) (*system.HostInfo, error)

// HostCache serves host information from a short-lived cache
type HostCache struct {
	*Cache[*system.HostInfo]
	load HostFunc
}

// NewHostCache creates a host info cache. A nil load uses gopsutil.
func NewHostCache(load HostFunc) *HostCache {
	if load == nil {
		load = system.GetHostInfo
	}
	return &HostCache{
		Cache: New[*system.HostInfo](HostTTL),
		load:  load,
	}
}

// Info returns cached host information, loading it when missing or expired
func (h *HostCache) Info(ctx context.Context) (*system.HostInfo, error) {
	return h.GetOrSet(KeyHost, func() (*system.HostInfo, error) {
		return h.load(ctx)
	})
}
