package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Total number of completed run loops by result",
		},
		[]string{"result"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "convene",
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of complete run loops",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)
)
