package indicators

import (
	"math"

	"cryptoInsight/internal/domain"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
	Overbought float64
	Oversold   float64
}

// RSI implements the Relative Strength Index indicator
type RSI struct {
	BaseIndicator
	config RSIConfig
}

// NewRSI creates a new RSI indicator instance
func NewRSI(config RSIConfig) *RSI {
	return &RSI{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (r *RSI) Name() string {
	return "RSI"
}

// RequiredDataPoints is period+1: the first difference needs two prices.
func (r *RSI) RequiredDataPoints() int {
	return r.Config.Period + 1
}

// Compute returns the RSI series for prices.
func (r *RSI) Compute(prices []float64) (domain.IndicatorSeries, error) {
	return ComputeRSI(prices, r.Config.Period)
}

// IsOverbought checks if the RSI value indicates an overbought condition
func (r *RSI) IsOverbought(value float64) bool {
	return value >= r.config.Overbought
}

// IsOversold checks if the RSI value indicates an oversold condition
func (r *RSI) IsOversold(value float64) bool {
	return value <= r.config.Oversold
}

// Zone classifies value as "overbought", "oversold" or "neutral".
// Undefined values have no zone.
func (r *RSI) Zone(value float64) string {
	switch {
	case math.IsNaN(value):
		return ""
	case r.IsOverbought(value):
		return "overbought"
	case r.IsOversold(value):
		return "oversold"
	default:
		return "neutral"
	}
}

// RSIState smooths gains and losses with alpha = 1/period using the
// recursive form avg = alpha*x + (1-alpha)*prev. The first difference seeds
// both averages; the output is undefined until period differences exist.
type RSIState struct {
	period    int
	alpha     float64
	prevClose float64
	hasPrev   bool
	diffs     int
	avgGain   float64
	avgLoss   float64
}

// NewRSIState creates an empty RSI state.
func NewRSIState(period int) (*RSIState, error) {
	if err := validatePeriod("RSI", period); err != nil {
		return nil, err
	}
	return &RSIState{period: period, alpha: 1 / float64(period)}, nil
}

// Update feeds the next close and returns the RSI at that position.
func (r *RSIState) Update(price float64) float64 {
	if !r.hasPrev {
		r.prevClose = price
		r.hasPrev = true
		return domain.Undefined()
	}

	change := price - r.prevClose
	r.prevClose = price

	var gain, loss float64
	if change > 0 {
		gain = change
	} else if change < 0 {
		loss = -change
	}

	if r.diffs == 0 {
		r.avgGain = gain
		r.avgLoss = loss
	} else {
		r.avgGain = r.alpha*gain + (1-r.alpha)*r.avgGain
		r.avgLoss = r.alpha*loss + (1-r.alpha)*r.avgLoss
	}
	r.diffs++

	if r.diffs < r.period {
		return domain.Undefined()
	}
	return rsiFromAverages(r.avgGain, r.avgLoss)
}

// IsReady returns true once the smoothed averages are defined.
func (r *RSIState) IsReady() bool {
	return r.diffs >= r.period
}

// rsiFromAverages applies the zero-loss guard: with no losses and no gains the
// market is flat and RSI is 50; with gains but no losses RS is undefined.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return domain.Undefined()
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ComputeRSI returns the RSI series over prices with the given smoothing period.
func ComputeRSI(prices []float64, period int) (domain.IndicatorSeries, error) {
	state, err := NewRSIState(period)
	if err != nil {
		return nil, err
	}
	out := make(domain.IndicatorSeries, len(prices))
	for i, p := range prices {
		out[i] = state.Update(p)
	}
	return out, nil
}
