package ports

import (
	"context"

	"cryptoInsight/internal/domain"
)

// Predictor retrieves next-day forecasts from the per-coin model services.
type Predictor interface {
	// Predict asks the coin's model service for a forecast given the current price.
	Predict(ctx context.Context, coin string, price float64) (*domain.Prediction, error)
	// Prewarm checks the coin's service health and records readiness.
	Prewarm(ctx context.Context, coin string) bool
	// Ready reports whether the coin's service was seen healthy.
	Ready(coin string) bool
}
