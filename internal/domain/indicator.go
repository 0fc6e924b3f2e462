package domain

import "math"

// IndicatorSeries is aligned 1:1 by position with a BarSeries.
// Positions without enough history hold NaN.
type IndicatorSeries []float64

// Undefined is the marker stored for positions without a value.
func Undefined() float64 {
	return math.NaN()
}

// Defined reports whether position i holds a computed value.
func (s IndicatorSeries) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// LeadingUndefined counts the contiguous undefined prefix.
func (s IndicatorSeries) LeadingUndefined() int {
	n := 0
	for n < len(s) && math.IsNaN(s[n]) {
		n++
	}
	return n
}

// Last returns the final element and whether it is defined.
func (s IndicatorSeries) Last() (float64, bool) {
	if len(s) == 0 || math.IsNaN(s[len(s)-1]) {
		return 0, false
	}
	return s[len(s)-1], true
}
