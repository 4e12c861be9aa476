package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the posting core.
type Metrics struct {
	// Journal entry metrics
	EntriesCreated  prometheus.Counter
	EntriesPosted   prometheus.Counter
	EntriesReversed prometheus.Counter
	PostingErrors   *prometheus.CounterVec

	// Saga metrics
	SagasStarted            prometheus.Counter
	SagasCompleted          prometheus.Counter
	SagasCompensated        prometheus.Counter
	SagasCompensationFailed prometheus.Counter
	SagaStepDuration        *prometheus.HistogramVec

	// Batch metrics
	BatchesApplied prometheus.Counter
	BatchesFailed  prometheus.Counter

	// Outbox metrics
	EventsDispatched   prometheus.Counter
	EventsFailed       prometheus.Counter
	EventsDeadLettered prometheus.Counter
	EventsDropped      prometheus.Counter
	DispatchDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against a custom registry, which keeps
// parallel tests from colliding on the default one.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EntriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_entries_created_total",
			Help: "Total number of journal entries created as drafts",
		}),
		EntriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_entries_posted_total",
			Help: "Total number of journal entries posted",
		}),
		EntriesReversed: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_entries_reversed_total",
			Help: "Total number of journal entries reversed",
		}),
		PostingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_posting_errors_total",
			Help: "Posting failures by reason",
		}, []string{"reason"}),

		SagasStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "saga_runs_started_total",
			Help: "Total number of saga runs started",
		}),
		SagasCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "saga_runs_completed_total",
			Help: "Total number of saga runs that completed all steps",
		}),
		SagasCompensated: factory.NewCounter(prometheus.CounterOpts{
			Name: "saga_runs_compensated_total",
			Help: "Total number of saga runs that were compensated",
		}),
		SagasCompensationFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "saga_runs_compensation_failed_total",
			Help: "Total number of saga runs frozen with a failed compensation",
		}),
		SagaStepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saga_step_duration_seconds",
			Help:    "Duration of saga step forward actions",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),

		BatchesApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_batches_applied_total",
			Help: "Total number of batches fully applied",
		}),
		BatchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_batches_failed_total",
			Help: "Total number of batches that failed and were compensated",
		}),

		EventsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_dispatched_total",
			Help: "Total number of outbox events delivered to the transport",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_failed_total",
			Help: "Total number of failed dispatch attempts",
		}),
		EventsDeadLettered: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_dead_lettered_total",
			Help: "Total number of events moved to the dead-letter state",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_dropped_total",
			Help: "Total number of stale events dropped before dispatch",
		}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_dispatch_duration_seconds",
			Help:    "Duration of one outbox dispatch cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
