package ports

import (
	"context"
	"time"

	"cryptoInsight/internal/domain"
)

// RawBar is one daily row as delivered by a market-data provider, before cleaning.
// Price and volume fields are kept as text since providers send them as strings
// and may send blanks or garbage.
type RawBar struct {
	Time   int64 // Unix seconds of the bar open
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
}

// RawBarSource retrieves raw daily bars from an external provider.
type RawBarSource interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// FetchDaily returns raw daily rows for symbol starting at since.
	// Provider and transport failures must wrap ErrUpstream.
	FetchDaily(ctx context.Context, symbol string, since time.Time) ([]RawBar, error)
}

// BarSource returns cleaned bar series sized for indicator warm-up.
type BarSource interface {
	Fetch(ctx context.Context, symbol string, visibleDays int) (domain.BarSeries, error)
}

// BarCache stores fetched bar series for a bounded freshness window.
type BarCache interface {
	// Get returns the cached series and true on a fresh hit.
	Get(ctx context.Context, key string) (domain.BarSeries, bool, error)
	// Set stores series under key for ttl.
	Set(ctx context.Context, key string, series domain.BarSeries, ttl time.Duration) error
}
