package env

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stepDuration tracks how long environment steps take.
	stepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "convene",
			Subsystem: "env",
			Name:      "step_duration_seconds",
			Help:      "Duration of environment steps in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// stepsTotal counts completed steps by result.
	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "env",
			Name:      "steps_total",
			Help:      "Total number of environment steps",
		},
		[]string{"result"},
	)

	// actorFailures counts tagged per-actor turn failures.
	actorFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "env",
			Name:      "actor_failures_total",
			Help:      "Total number of tagged per-actor turn failures",
		},
	)

	// messagesCommitted counts messages accepted into history.
	messagesCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "env",
			Name:      "messages_committed_total",
			Help:      "Total number of messages committed to history",
		},
	)
)
