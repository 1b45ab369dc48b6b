// Package observability exposes the Prometheus metrics surface for the
// delivery execution core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TaskQueueDepth tracks the number of eligible tasks waiting to be claimed.
	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "delivery_task_queue_depth",
		Help: "Current number of eligible tasks awaiting claim",
	})

	// ActiveClaims tracks tasks currently EXECUTING under a worker.
	ActiveClaims = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "delivery_active_claims",
		Help: "Tasks currently claimed and executing",
	})

	// TasksProcessed counts tasks successfully claimed for a dispatch attempt.
	TasksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_tasks_processed_total",
		Help: "Total tasks successfully claimed for a dispatch attempt",
	})

	// TasksCompleted counts tasks that reached COMPLETED.
	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_tasks_completed_total",
		Help: "Total tasks that reached COMPLETED",
	})

	// TasksFailedPermanent counts tasks that reached FAILED_PERMANENT.
	TasksFailedPermanent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_tasks_failed_permanent_total",
		Help: "Total tasks that reached FAILED_PERMANENT",
	})

	// TaskRetries counts transient-failure transitions to FAILED_RETRYING.
	TaskRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_task_retries_total",
		Help: "Total transient-failure retry transitions",
	})

	// OrphansRecovered counts orphan-sweep reclaims.
	OrphansRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_orphans_recovered_total",
		Help: "Total EXECUTING tasks reclaimed by the orphan sweep",
	})

	// DeadLetterSize tracks the current count of FAILED_PERMANENT tasks.
	DeadLetterSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "delivery_dead_letter_size",
		Help: "Current number of tasks in FAILED_PERMANENT",
	})

	// WorkerStart marks a worker process starting up (set to unix time).
	WorkerStart = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "delivery_worker_start_time_seconds",
		Help: "Unix timestamp at which this worker instance started",
	}, []string{"worker_id"})

	// ClaimConflicts counts optimistic-concurrency losses on ClaimTask.
	ClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_claim_conflicts_total",
		Help: "Total optimistic concurrency conflicts observed during claim",
	})

	// DispatchLatency tracks the latency of the Dispatch Boundary call.
	DispatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_dispatch_latency_seconds",
		Help:    "Latency of the outbound dispatch call",
		Buckets: prometheus.DefBuckets,
	})

	// ProxyHealthState tracks the current health state per node (0=offline,1=degraded,2=healthy).
	ProxyHealthState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "delivery_proxy_health_state",
		Help: "Current derived health state of a proxy node",
	}, []string{"node_id"})

	// DegradedFallbacks counts selections that fell back to a DEGRADED node.
	DegradedFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_degraded_fallback_total",
		Help: "Total selections that used a DEGRADED node because no HEALTHY candidate existed",
	})

	// AdmissionRejections counts orders rejected by the Capacity Planner.
	AdmissionRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_admission_rejections_total",
		Help: "Total orders rejected by admission control",
	})

	// RefundsIssued counts settlement passes that issued a balance transaction.
	RefundsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_refunds_issued_total",
		Help: "Total REFUND balance transactions issued",
	})

	// RefundAnomalies counts anomalies recorded by settlement, by severity.
	RefundAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_refund_anomalies_total",
		Help: "Total refund anomalies recorded, by severity",
	}, []string{"severity"})

	// InvariantViolations counts arithmetic invariant failures (held, not auto-corrected).
	InvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_invariant_violations_total",
		Help: "Total invariant violations detected at finalization or settlement",
	})
)
