package indicators

import (
	"fmt"

	"cryptoInsight/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage wraps SMA behind the Indicator interface
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator, e.g. "SMA(20)"
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s(%d)", m.config.Type, m.Config.Period)
}

// Compute returns the moving average series based on the configured type
func (m *MovingAverage) Compute(prices []float64) (domain.IndicatorSeries, error) {
	switch m.config.Type {
	case SimpleMovingAverage:
		return SMA(prices, m.Config.Period)
	default:
		return nil, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
}

// SMAState keeps a fixed-size trailing window and its running sum.
type SMAState struct {
	window int
	buf    []float64
	next   int
	count  int
	sum    float64
}

// NewSMAState creates an empty SMA state for the given window.
func NewSMAState(window int) (*SMAState, error) {
	if err := validatePeriod("SMA", window); err != nil {
		return nil, err
	}
	return &SMAState{window: window, buf: make([]float64, window)}, nil
}

// Update adds price and returns the current mean, or NaN until the window is full.
func (s *SMAState) Update(price float64) float64 {
	if s.count == s.window {
		s.sum -= s.buf[s.next]
	} else {
		s.count++
	}
	s.buf[s.next] = price
	s.sum += price
	s.next = (s.next + 1) % s.window

	if s.count < s.window {
		return domain.Undefined()
	}
	return s.sum / float64(s.window)
}

// IsReady returns true once window prices have been seen.
func (s *SMAState) IsReady() bool {
	return s.count == s.window
}

// SMA computes the trailing arithmetic mean of window prices at every position.
// Positions before window-1 are undefined.
func SMA(prices []float64, window int) (domain.IndicatorSeries, error) {
	state, err := NewSMAState(window)
	if err != nil {
		return nil, err
	}
	out := make(domain.IndicatorSeries, len(prices))
	for i, p := range prices {
		out[i] = state.Update(p)
	}
	return out, nil
}
