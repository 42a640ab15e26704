// Package metrics holds the Prometheus collectors shared by the storage
// adapters and the relationship service. It sits below both so neither
// imports the other.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SlowOperation is the latency above which a store operation counts as slow
const SlowOperation = 100 * time.Millisecond

var storeLabels = []string{"backend", "collection", "operation"}

var (
	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rolodex_store_operation_duration_seconds",
			Help:    "Store round-trip latency per backend, collection and operation",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		storeLabels,
	)

	storeOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_store_operation_errors_total",
			Help: "Store operations that returned an error",
		},
		storeLabels,
	)

	storeSlowOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_store_slow_operations_total",
			Help: "Store operations slower than the slow-operation threshold",
		},
		storeLabels,
	)
)

// StoreOp names one store round trip. Collection is the mongo collection or
// postgres table; it is empty for commands that target neither, such as ping.
type StoreOp struct {
	Backend    string
	Collection string
	Operation  string
}

func (op StoreOp) labels() prometheus.Labels {
	return prometheus.Labels{
		"backend":    op.Backend,
		"collection": op.Collection,
		"operation":  op.Operation,
	}
}

// Observe records a finished operation
func (op StoreOp) Observe(d time.Duration, failed bool) {
	l := op.labels()
	storeOpDuration.With(l).Observe(d.Seconds())
	if failed {
		storeOpErrors.With(l).Inc()
	}
	if d > SlowOperation {
		storeSlowOps.With(l).Inc()
	}
}
