package domain

import "time"

// Bar represents one calendar day's price record.
type Bar struct {
	Date   time.Time // Calendar day, UTC midnight
	Open   float64   // Opening price
	High   float64   // Highest price
	Low    float64   // Lowest price
	Close  float64   // Closing price
	Volume float64   // Traded volume
}

// BarSeries is an ordered sequence of daily bars for one symbol.
// Bars are ascending by Date with no duplicate dates.
type BarSeries struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of bars in the series.
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// Closes extracts the close column.
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar and false if the series is empty.
func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Trailing returns a new series holding the last n bars.
func (s BarSeries) Trailing(n int) BarSeries {
	if n <= 0 {
		return BarSeries{Symbol: s.Symbol, Bars: []Bar{}}
	}
	start := len(s.Bars) - n
	if start < 0 {
		start = 0
	}
	bars := make([]Bar, len(s.Bars)-start)
	copy(bars, s.Bars[start:])
	return BarSeries{Symbol: s.Symbol, Bars: bars}
}

// DropFrom returns the series without trailing bars dated on or after day.
// Used to discard a not-yet-closed trading day.
func (s BarSeries) DropFrom(day time.Time) BarSeries {
	cut := len(s.Bars)
	for cut > 0 && !s.Bars[cut-1].Date.Before(day) {
		cut--
	}
	return BarSeries{Symbol: s.Symbol, Bars: s.Bars[:cut:cut]}
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
