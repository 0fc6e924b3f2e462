package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can use errors.Is.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market data errors
	ErrUpstream        = errors.New("upstream provider failure")
	ErrDataUnavailable = errors.New("no usable data after cleaning")
	ErrRateLimited     = errors.New("API rate limit exceeded")

	// Prediction service errors
	ErrServiceNotReady = errors.New("prediction service not ready")

	// Cache errors
	ErrCacheFailure = errors.New("cache operation failed")
)
