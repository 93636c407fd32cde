// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Interpretation pipeline.
var (
	FastPathMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_fastpath_total",
			Help: "Commands answered by the deterministic matcher, by rule",
		},
		[]string{"rule"},
	)

	PlannerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_planner_requests_total",
			Help: "Planner calls by outcome (ok, error, timeout, invalid)",
		},
		[]string{"outcome"},
	)

	PlannerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pos_planner_duration_seconds",
			Help:    "Latency of the planner model call",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
		},
	)

	GuardrailDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_guardrail_dropped_total",
			Help: "Candidate actions removed by a guardrail rule",
		},
		[]string{"rule"},
	)

	ContractViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_contract_violations_total",
			Help: "Final actions whose params break the registry contract",
		},
		[]string{"action"},
	)

	PaymentMethodsCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_payment_methods_cache_total",
			Help: "Payment-method lookups by cache result (hit, miss, error)",
		},
		[]string{"result"},
	)

	SearchCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_search_cache_total",
			Help: "Catalog search lookups by cache result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// ObserveGuardrailDrop matches guardrail.DropObserver.
func ObserveGuardrailDrop(rule string, dropped int) {
	GuardrailDropped.WithLabelValues(rule).Add(float64(dropped))
}
