package shardqueue

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cma_client",
		Subsystem: "shardqueue",
		Name:      "submissions_total",
		Help:      "Jobs accepted per shard.",
	}, []string{"shard"})

	queueFullTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cma_client",
		Subsystem: "shardqueue",
		Name:      "queue_full_total",
		Help:      "Submissions rejected because the shard stayed full.",
	}, []string{"shard"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cma_client",
		Subsystem: "shardqueue",
		Name:      "failures_total",
		Help:      "Jobs that finished with an error, including skipped and panicked jobs.",
	}, []string{"shard"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cma_client",
		Subsystem: "shardqueue",
		Name:      "run_duration_seconds",
		Help:      "Duration of single job attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"shard"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cma_client",
		Subsystem: "shardqueue",
		Name:      "queue_depth",
		Help:      "Jobs waiting per shard.",
	}, []string{"shard"})
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
