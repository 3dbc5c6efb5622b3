package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cma_client",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Requests sent to the management API by method and status.",
		},
		[]string{"method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cma_client",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Round-trip latency of management API requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
