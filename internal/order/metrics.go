package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "convene",
		Subsystem: "order",
		Name:      "batch_size",
		Help:      "Actors selected per turn, by strategy.",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	}, []string{"strategy"})

	skipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "convene",
		Subsystem: "order",
		Name:      "skips_total",
		Help:      "Actors skipped during selection, by strategy and reason.",
	}, []string{"strategy", "reason"})
)
