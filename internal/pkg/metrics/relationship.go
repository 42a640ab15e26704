package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relationshipSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_relationship_sweeps_total",
			Help: "Total number of counterpart sweeps started",
		},
		[]string{"kind"},
	)

	relationshipSyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_relationship_sync_failures_total",
			Help: "Total number of counterpart updates that failed during a sweep",
		},
		[]string{"kind", "op"},
	)

	cascadeDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_cascade_deleted_total",
			Help: "Total number of edges and assignments removed by cascade delete",
		},
		[]string{"kind"},
	)

	namePropagations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_name_propagations_total",
			Help: "Total number of cached names rewritten after a rename",
		},
		[]string{"kind"},
	)

	orphansRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolodex_orphans_removed_total",
			Help: "Total number of dangling references removed by the orphan sweep",
		},
		[]string{"type"},
	)
)

// RecordSweep records the start of a counterpart sweep for an entity kind
func RecordSweep(kind string) {
	relationshipSweeps.WithLabelValues(kind).Inc()
}

// RecordSyncFailure records one failed counterpart operation
func RecordSyncFailure(kind, op string) {
	relationshipSyncFailures.WithLabelValues(kind, op).Inc()
}

// RecordCascadeDeleted records the number of references removed by a cascade
func RecordCascadeDeleted(kind string, count int64) {
	if count > 0 {
		cascadeDeleted.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordNamePropagation records the number of cached names rewritten
func RecordNamePropagation(kind string, count int64) {
	if count > 0 {
		namePropagations.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordOrphansRemoved records dangling edges or assignments removed by the sweep
func RecordOrphansRemoved(refType string, count int) {
	if count > 0 {
		orphansRemoved.WithLabelValues(refType).Add(float64(count))
	}
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "rolodex_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	},
	[]string{"name"},
)

// SetBreakerState records the state of a named circuit breaker
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}
