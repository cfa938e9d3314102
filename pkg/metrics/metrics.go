package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Reminder sweep metrics
	RemindersSent    *prometheus.CounterVec
	RemindersSkipped *prometheus.CounterVec
	RemindersFailed  *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
	SweepsSkipped    prometheus.Counter

	// Quota metrics
	QuotaRejections prometheus.Counter
	QuotaResets     prometheus.Counter

	// SMS transport metrics
	SMSSendLatency  prometheus.Histogram
	SMSSendFailures prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics on the default registry
func New(namespace string) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, namespace)
}

// NewWith creates metrics registered on the given registerer. Tests pass a
// throwaway registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RemindersSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of reminder SMS messages sent",
		}, []string{"trigger"}),
		RemindersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_skipped_total",
			Help:      "Total number of reminder candidates skipped, by reason",
		}, []string{"reason"}),
		RemindersFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Total number of reminder sends that failed, by reason",
		}, []string{"reason"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent running a full reminder sweep",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SweepsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_skipped_total",
			Help:      "Number of sweep ticks skipped because a sweep was still running",
		}),
		QuotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Number of sends rejected by the monthly SMS quota",
		}),
		QuotaResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_resets_total",
			Help:      "Number of monthly quota counter resets performed",
		}),
		SMSSendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sms_send_duration_seconds",
			Help:      "Latency of SMS transport calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SMSSendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_send_failures_total",
			Help:      "Number of failed SMS transport calls",
		}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
