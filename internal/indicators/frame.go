package indicators

import (
	"fmt"

	"cryptoInsight/internal/domain"
)

// Default dashboard indicator parameters.
const (
	ShortSMAWindow = 7
	LongSMAWindow  = 20
	RSIPeriod      = 14

	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// Frame holds a bar series and the default indicators aligned to it.
type Frame struct {
	Bars  domain.BarSeries
	SMA7  domain.IndicatorSeries
	SMA20 domain.IndicatorSeries
	RSI14 domain.IndicatorSeries
}

// ComputeFrame computes SMA(7), SMA(20) and RSI(14) over the whole series.
// Pass the full warm-up series here and call Window afterwards.
func ComputeFrame(series domain.BarSeries) (*Frame, error) {
	closes := series.Closes()

	short, err := NewMovingAverage(MovingAverageConfig{
		IndicatorConfig: IndicatorConfig{Period: ShortSMAWindow},
		Type:            SimpleMovingAverage,
	}).Compute(closes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute short SMA: %w", err)
	}
	long, err := NewMovingAverage(MovingAverageConfig{
		IndicatorConfig: IndicatorConfig{Period: LongSMAWindow},
		Type:            SimpleMovingAverage,
	}).Compute(closes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute long SMA: %w", err)
	}
	rsi, err := DefaultRSI().Compute(closes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute RSI: %w", err)
	}

	return &Frame{Bars: series, SMA7: short, SMA20: long, RSI14: rsi}, nil
}

// Window slices bars and every indicator to the last n positions.
func (f *Frame) Window(n int) *Frame {
	return &Frame{
		Bars:  f.Bars.Trailing(n),
		SMA7:  Trailing(f.SMA7, n),
		SMA20: Trailing(f.SMA20, n),
		RSI14: Trailing(f.RSI14, n),
	}
}

// DefaultRSI returns the RSI(14) indicator with 70/30 bands.
func DefaultRSI() *RSI {
	return NewRSI(RSIConfig{
		IndicatorConfig: IndicatorConfig{Period: RSIPeriod},
		Overbought:      RSIOverbought,
		Oversold:        RSIOversold,
	})
}
