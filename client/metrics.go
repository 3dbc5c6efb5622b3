package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cma_client",
			Name:      "mutations_enqueued_total",
			Help:      "Entity mutations accepted into the shard executor.",
		},
		[]string{"op"},
	)

	mutationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cma_client",
			Name:      "mutation_failures_total",
			Help:      "Async entity mutations that returned an error or panicked.",
		},
		[]string{"shard"},
	)
)
