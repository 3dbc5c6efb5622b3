package identitymap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cma_client",
		Subsystem: "identitymap",
		Name:      "store_total",
		Help:      "Store calls by outcome (insert, merge, stale, self, incompatible).",
	},
	[]string{"outcome"},
)
