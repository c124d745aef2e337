package resource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rateLimitDenials counts Acquire calls rejected for lack of tokens.
	rateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "resource",
			Name:      "rate_limit_denials_total",
			Help:      "Total number of token bucket acquisitions denied",
		},
		[]string{"bucket"},
	)

	// quotaExceeded counts allocations rejected by a quota.
	quotaExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "resource",
			Name:      "quota_exceeded_total",
			Help:      "Total number of quota allocations rejected",
		},
		[]string{"quota"},
	)

	// retryAttempts counts retries of transient failures.
	retryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "resource",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts after transient failures",
		},
	)

	// breakerOpened counts circuit breaker trips.
	breakerOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "resource",
			Name:      "breaker_opened_total",
			Help:      "Total number of times a circuit breaker opened",
		},
		[]string{"breaker"},
	)
)
