package indicators

import "cryptoInsight/internal/domain"

// Trailing returns a copy of the last n elements of series.
// Undefined markers are kept as they are; nothing is recomputed or filled.
// Indicators must be computed over the full buffered series before calling this.
func Trailing(series domain.IndicatorSeries, n int) domain.IndicatorSeries {
	if n <= 0 {
		return domain.IndicatorSeries{}
	}
	start := len(series) - n
	if start < 0 {
		start = 0
	}
	out := make(domain.IndicatorSeries, len(series)-start)
	copy(out, series[start:])
	return out
}
