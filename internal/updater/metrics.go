package updater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "updater",
			Name:      "deliveries_total",
			Help:      "Total number of message deliveries to actor memories",
		},
		[]string{"kind"},
	)

	deliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "updater",
			Name:      "delivery_failures_total",
			Help:      "Total number of failed memory deliveries",
		},
	)

	silenceMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "updater",
			Name:      "silence_messages_total",
			Help:      "Total number of synthetic silence messages committed",
		},
	)
)
