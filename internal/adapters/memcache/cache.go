package memcache

import (
	"context"
	"sync"
	"time"

	"cryptoInsight/internal/domain"
)

type entry struct {
	series    domain.BarSeries
	expiresAt time.Time
}

// Cache is an in-process ports.BarCache with per-entry expiry.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

// New creates an empty cache. now defaults to time.Now.
func New(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{items: make(map[string]entry), now: now}
}

// Get returns the series stored under key if it has not expired.
func (c *Cache) Get(ctx context.Context, key string) (domain.BarSeries, bool, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return domain.BarSeries{}, false, nil
	}
	return e.series, true, nil
}

// Set stores series under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, series domain.BarSeries, ttl time.Duration) error {
	c.mu.Lock()
	c.items[key] = entry{series: series, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// PurgeExpired drops expired entries and returns how many were removed.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	now := c.now()
	var n int64
	c.mu.Lock()
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	c.mu.Unlock()
	return n, nil
}
