// Package metrics defines storage-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Store counter vectors
var (
	StoreOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Total number of blob store operations by backend, operation and result",
	}, []string{"backend", "operation", "result"})

	SnapshotHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_lookups_total",
		Help:      "Snapshot cache lookups by result",
	}, []string{"result"})
)

// Store histogram vectors
var (
	StoreOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Latency of blob store operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "operation"})
)

// RecordStoreOperation records one blob store call.
func RecordStoreOperation(backend, operation string, durationSeconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperationsTotal.WithLabelValues(backend, operation, result).Inc()
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(durationSeconds)
}

// RecordSnapshotLookup records a snapshot cache hit or miss.
func RecordSnapshotLookup(hit bool) {
	if hit {
		SnapshotHitsTotal.WithLabelValues("hit").Inc()
		return
	}
	SnapshotHitsTotal.WithLabelValues("miss").Inc()
}
