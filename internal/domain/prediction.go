package domain

// Prediction is a next-day forecast returned by a model service.
type Prediction struct {
	Coin          string  // Dashboard coin symbol (e.g., "BTC")
	PredictedHigh float64 // Forecast high for the next day
	ModelName     string  // Model label reported by the service owner
}
