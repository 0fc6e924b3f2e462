package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/metrics"
	"cryptoInsight/internal/ports"
)

// DefaultCacheTTL matches the freshness window of daily data on the dashboard.
const DefaultCacheTTL = 10 * time.Minute

// CachedFetcher reuses fetch results for a bounded time.
// Cache failures are logged and the fetch goes upstream.
type CachedFetcher struct {
	next   ports.BarSource
	cache  ports.BarCache
	ttl    time.Duration
	logger ports.Logger
}

// NewCachedFetcher wraps next with cache.
func NewCachedFetcher(next ports.BarSource, cache ports.BarCache, ttl time.Duration, logger ports.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

// CacheKey builds the cache key for a symbol and visible range.
func CacheKey(symbol string, visibleDays int) string {
	return fmt.Sprintf("bars:%s:%d", strings.ToUpper(strings.TrimSpace(symbol)), visibleDays)
}

// Fetch returns a cached series when fresh, otherwise fetches and stores it.
func (c *CachedFetcher) Fetch(ctx context.Context, symbol string, visibleDays int) (domain.BarSeries, error) {
	key := CacheKey(symbol, visibleDays)

	series, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn(ctx, "Bar cache lookup failed, fetching upstream", map[string]interface{}{"key": key, "error": err.Error()})
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return series, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	series, err = c.next.Fetch(ctx, symbol, visibleDays)
	if err != nil {
		return domain.BarSeries{}, err
	}

	if err := c.cache.Set(ctx, key, series, c.ttl); err != nil {
		c.logger.Warn(ctx, "Bar cache store failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return series, nil
}

// Refresh fetches upstream and overwrites the cached entry regardless of age.
func (c *CachedFetcher) Refresh(ctx context.Context, symbol string, visibleDays int) (domain.BarSeries, error) {
	series, err := c.next.Fetch(ctx, symbol, visibleDays)
	if err != nil {
		return domain.BarSeries{}, err
	}

	key := CacheKey(symbol, visibleDays)
	if err := c.cache.Set(ctx, key, series, c.ttl); err != nil {
		return series, fmt.Errorf("refresh %s: %w: %w", key, ports.ErrCacheFailure, err)
	}
	return series, nil
}
