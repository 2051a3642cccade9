// Package metrics provides the centralized Prometheus metrics registry for the banker pool.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "banker_pool"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	WagersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wagers_placed_total",
		Help:      "Total number of wagers placed or changed",
	})
	BankersSetTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bankers_set_total",
		Help:      "Total number of banker designations",
	})
	WinnersSetTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "winners_set_total",
		Help:      "Total number of race winners posted, by whether the post corrected an earlier result",
	}, []string{"correction"})
	DaysOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "days_opened_total",
		Help:      "Total number of race days opened",
	})
	DaysCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "days_completed_total",
		Help:      "Total number of completion requests, by outcome",
	}, []string{"outcome"})
	RecomputationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recomputations_total",
		Help:      "Total number of daily score recomputations",
	})
	IntegrityWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integrity_warnings_total",
		Help:      "Races whose posted winner matched no horse",
	})
)

// Gauge metrics
var (
	OpenDayParticipants = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_day_participants",
		Help:      "Participants holding at least one wager on the open race day",
	})
	ReconciliationDiscrepancies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reconciliation_discrepancies",
		Help:      "Participants whose running total disagrees with the race day index at the last audit",
	})
)

// Histogram metrics
var (
	RecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "recompute_duration_seconds",
		Help:      "Duration of daily score recomputation in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(WagersPlacedTotal)
		registry.MustRegister(BankersSetTotal)
		registry.MustRegister(WinnersSetTotal)
		registry.MustRegister(DaysOpenedTotal)
		registry.MustRegister(DaysCompletedTotal)
		registry.MustRegister(RecomputationsTotal)
		registry.MustRegister(IntegrityWarningsTotal)

		registry.MustRegister(OpenDayParticipants)
		registry.MustRegister(ReconciliationDiscrepancies)

		registry.MustRegister(RecomputeDuration)

		// Store metrics
		registry.MustRegister(StoreOperationsTotal)
		registry.MustRegister(StoreOperationDuration)
		registry.MustRegister(SnapshotHitsTotal)

		// HTTP and catalog metrics
		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
		registry.MustRegister(CatalogFetchesTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordWagerPlaced records a wager upsert.
func RecordWagerPlaced() {
	WagersPlacedTotal.Inc()
}

// RecordBankerSet records a banker designation.
func RecordBankerSet() {
	BankersSetTotal.Inc()
}

// RecordWinnerSet records a posted race result.
func RecordWinnerSet(correction bool) {
	if correction {
		WinnersSetTotal.WithLabelValues("true").Inc()
		return
	}
	WinnersSetTotal.WithLabelValues("false").Inc()
}

// RecordDayOpened records a newly opened race day.
func RecordDayOpened() {
	DaysOpenedTotal.Inc()
}

// RecordDayCompleted records a completion request. replayed marks a day that was already archived.
func RecordDayCompleted(replayed bool) {
	if replayed {
		DaysCompletedTotal.WithLabelValues("already_completed").Inc()
		return
	}
	DaysCompletedTotal.WithLabelValues("completed").Inc()
}

// RecordRecomputation records a score recomputation and its duration.
func RecordRecomputation(durationSeconds float64) {
	RecomputationsTotal.Inc()
	RecomputeDuration.Observe(durationSeconds)
}

// RecordIntegrityWarning records a winner that matched no horse.
func RecordIntegrityWarning() {
	IntegrityWarningsTotal.Inc()
}

// UpdateOpenDayParticipants sets the open-day participant gauge.
func UpdateOpenDayParticipants(count int) {
	OpenDayParticipants.Set(float64(count))
}

// UpdateReconciliationDiscrepancies sets the discrepancy gauge from the latest audit.
func UpdateReconciliationDiscrepancies(count int) {
	ReconciliationDiscrepancies.Set(float64(count))
}
