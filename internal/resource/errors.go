package resource

import "errors"

// Errors returned by the governance layer. Callers match these with
// errors.Is to decide retryability.
var (
	// ErrRateLimited is returned when a token bucket has no capacity.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded is returned when an allocation would exceed a
	// quota's maximum. Usage is left unchanged.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrCircuitOpen is returned by a tripped circuit breaker without
	// invoking the wrapped operation.
	ErrCircuitOpen = errors.New("circuit open")
)
