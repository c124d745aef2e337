package selector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stageDropped counts candidates dropped per pipeline stage.
	stageDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "selector",
			Name:      "stage_dropped_total",
			Help:      "Total number of candidate messages dropped per pipeline stage",
		},
		[]string{"stage"},
	)

	// actorResults counts selected and filtered messages per actor.
	actorResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convene",
			Subsystem: "selector",
			Name:      "actor_results_total",
			Help:      "Total number of messages selected or filtered per actor",
		},
		[]string{"actor", "result"},
	)
)
