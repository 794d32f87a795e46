package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	awardsTotal           *prometheus.CounterVec
	reviewTransitions     *prometheus.CounterVec
	ledgerInconsistencies prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecolearn_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		awardsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_awards_total",
			Help: "Ledger award attempts by activity kind and outcome.",
		}, []string{"kind", "outcome"})

		reviewTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_review_transitions_total",
			Help: "Submission review state transitions by target status and mode.",
		}, []string{"status", "mode"})

		ledgerInconsistencies = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecolearn_ledger_inconsistencies_total",
			Help: "Detected mismatches between cached totals and the ledger sum.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, awardsTotal, reviewTransitions, ledgerInconsistencies)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Awards exposes the counter for ledger award attempts.
func Awards() *prometheus.CounterVec {
	RegisterMetrics()
	return awardsTotal
}

// ReviewTransitions exposes the counter for review state transitions.
func ReviewTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewTransitions
}

// LedgerInconsistencies exposes the counter for reconciliation mismatches.
func LedgerInconsistencies() prometheus.Counter {
	RegisterMetrics()
	return ledgerInconsistencies
}
