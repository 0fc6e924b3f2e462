package indicators

import (
	"fmt"

	"cryptoInsight/internal/domain"
	"cryptoInsight/internal/ports"
)

// Indicator represents a technical indicator computed over a close-price sequence.
type Indicator interface {
	// Compute returns a series aligned 1:1 with prices.
	Compute(prices []float64) (domain.IndicatorSeries, error)

	// RequiredDataPoints returns the number of prices needed for the first defined value
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of prices needed for a defined value
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

func validatePeriod(kind string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s period must be positive, got %d: %w", kind, period, ports.ErrInvalidParameter)
	}
	return nil
}
