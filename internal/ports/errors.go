package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrInvalidRule        = errors.New("invalid trailing rule")

	// Broker Errors
	ErrBrokerUnavailable    = errors.New("broker API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the broker")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("broker authentication failed (check API keys)")

	// Market Data Errors
	ErrNoMarketData = errors.New("market levels unavailable")
	ErrNoIVData     = errors.New("implied volatility data unavailable")

	// Bus Errors
	ErrPublishFailed   = errors.New("failed to publish message")
	ErrSubscribeFailed = errors.New("failed to subscribe to channel")
	ErrDecodeFailed    = errors.New("failed to decode message payload")

	// Database Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
