package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/indicators"
	"cryptoInsight/internal/metrics"
	"cryptoInsight/internal/ports"
)

const (
	// BufferDays is the lookback added to the visible range for indicator warm-up.
	BufferDays = 100
	// MinSpanDays is the smallest calendar span ever requested upstream.
	MinSpanDays = 120
	// RSIWarmup is the number of extra bars returned beyond the visible range.
	RSIWarmup = indicators.RSIPeriod
	// MaxVisibleDays caps a request at ten years of daily bars.
	MaxVisibleDays = 3650
)

// Fetcher implements ports.BarSource over a raw provider.
type Fetcher struct {
	source ports.RawBarSource
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the Fetcher.
type Config struct {
	Source ports.RawBarSource
	Logger ports.Logger
	Now    func() time.Time // Defaults to time.Now
}

// NewFetcher creates a new bar source adapter.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("raw bar source is required: %w", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for bar fetcher: %w", ports.ErrConfigurationError)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Fetcher{source: cfg.Source, logger: cfg.Logger, now: now}, nil
}

// SpanDays returns the calendar span requested upstream for visibleDays.
func SpanDays(visibleDays int) int {
	span := visibleDays + BufferDays
	if span < MinSpanDays {
		span = MinSpanDays
	}
	return span
}

// Fetch returns cleaned daily bars for symbol: the last visibleDays+RSIWarmup
// bars of a span covering at least visibleDays+BufferDays calendar days.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, visibleDays int) (domain.BarSeries, error) {
	if visibleDays <= 0 || visibleDays > MaxVisibleDays {
		return domain.BarSeries{}, fmt.Errorf("visible days must be in [1, %d], got %d: %w", MaxVisibleDays, visibleDays, ports.ErrInvalidParameter)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.BarSeries{}, fmt.Errorf("symbol is required: %w", ports.ErrInvalidParameter)
	}

	today := domain.DayOf(f.now())
	since := today.AddDate(0, 0, -SpanDays(visibleDays))
	provider := f.source.Name()

	started := time.Now()
	rows, err := f.source.FetchDaily(ctx, symbol, since)
	metrics.FetchDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.UpstreamFetches.WithLabelValues(provider, metrics.OutcomeUpstream).Inc()
		if !errors.Is(err, ports.ErrUpstream) {
			err = fmt.Errorf("%w: %w", ports.ErrUpstream, err)
		}
		return domain.BarSeries{}, fmt.Errorf("fetch %s bars from %s: %w", symbol, provider, err)
	}

	bars := Clean(rows)
	if len(bars) == 0 {
		metrics.UpstreamFetches.WithLabelValues(provider, metrics.OutcomeUnavailable).Inc()
		return domain.BarSeries{}, fmt.Errorf("%s returned %d rows for %s, none usable: %w", provider, len(rows), symbol, ports.ErrDataUnavailable)
	}
	metrics.UpstreamFetches.WithLabelValues(provider, metrics.OutcomeOK).Inc()

	series := domain.BarSeries{Symbol: symbol, Bars: bars}.Trailing(visibleDays + RSIWarmup)
	f.logger.Debug(ctx, "Fetched daily bars", map[string]interface{}{
		"symbol":   symbol,
		"provider": provider,
		"since":    since.Format("2006-01-02"),
		"raw":      len(rows),
		"clean":    len(bars),
		"returned": series.Len(),
	})
	return series, nil
}
