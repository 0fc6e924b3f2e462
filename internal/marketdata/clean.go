package marketdata

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/metrics"
	"cryptoInsight/internal/ports"
)

// Clean converts raw provider rows into bars: rows with a missing or
// non-numeric price or volume are dropped, the rest are sorted by date and
// reduced to one bar per calendar day (the last row seen for a day wins).
func Clean(rows []ports.RawBar) []domain.Bar {
	bars := make([]domain.Bar, 0, len(rows))
	for _, row := range rows {
		bar, ok := parseRow(row)
		if !ok {
			metrics.RowsDropped.WithLabelValues("non_numeric").Inc()
			continue
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			metrics.RowsDropped.WithLabelValues("duplicate_date").Inc()
			continue
		}
		out = append(out, b)
	}
	return out
}

func parseRow(row ports.RawBar) (domain.Bar, bool) {
	var vals [5]float64
	for i, s := range [5]string{row.Open, row.High, row.Low, row.Close, row.Volume} {
		v, ok := parseNumber(s)
		if !ok {
			return domain.Bar{}, false
		}
		vals[i] = v
	}
	return domain.Bar{
		Date:   domain.DayOf(time.Unix(row.Time, 0)),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
