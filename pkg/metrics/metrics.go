package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sweep metrics
	SweepRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_sweep_runs_total",
		Help: "Total number of evaluation sweep passes, by outcome",
	}, []string{"outcome"})
	SweepFetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sla_sweep_fetch_failures_total",
		Help: "Total number of sweep passes skipped because the task snapshot was unavailable",
	})
	SubtasksAutoPromoted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_subtasks_auto_promoted_total",
		Help: "Total number of subtasks automatically promoted to overdue by the sweep",
	}, []string{"client"})

	// State machine metrics
	TransitionsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_transitions_applied_total",
		Help: "Total number of successful subtask status transitions",
	}, []string{"to"})
	TransitionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_transitions_rejected_total",
		Help: "Total number of rejected subtask status transitions, by rejection reason",
	}, []string{"reason"})

	// Escalation metrics
	EscalationTimersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sla_escalation_timers_active",
		Help: "Number of tasks currently carrying an escalation timer",
	})
	AlertsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_alerts_dispatched_total",
		Help: "Total number of alerts dispatched, by alert type",
	}, []string{"type"})
	AlertDispatchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_alert_dispatch_failures_total",
		Help: "Total number of failed alert dispatch attempts, by sink",
	}, []string{"sink"})
	AlertSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_alert_sink_errors_total",
		Help: "Total number of alert sink errors, by sink and error type",
	}, []string{"sink", "error_type"})
	AlertSinkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sla_alert_sink_latency_seconds",
		Help:    "Latency of alert sink writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})

	// Mail metrics
	MailQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_mail_queued_total",
		Help: "Total number of notification emails queued",
	}, []string{"host"})
	MailSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_mail_sent_total",
		Help: "Total number of notification emails sent successfully",
	}, []string{"host"})
	MailFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_mail_failed_total",
		Help: "Total number of notification emails that failed after all retries",
	}, []string{"host"})
	MailRetryScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_mail_retry_scheduled_total",
		Help: "Total number of notification email retries scheduled",
	}, []string{"host"})
	MailQueueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_mail_queue_dropped_total",
		Help: "Total number of notification emails dropped because the queue was unavailable or full",
	}, []string{"host"})
)

func init() {
	prometheus.MustRegister(SweepRuns)
	prometheus.MustRegister(SweepFetchFailures)
	prometheus.MustRegister(SubtasksAutoPromoted)
	prometheus.MustRegister(TransitionsApplied)
	prometheus.MustRegister(TransitionsRejected)
	prometheus.MustRegister(EscalationTimersActive)
	prometheus.MustRegister(AlertsDispatched)
	prometheus.MustRegister(AlertDispatchFailures)
	prometheus.MustRegister(AlertSinkErrors)
	prometheus.MustRegister(AlertSinkLatency)
	prometheus.MustRegister(MailQueued)
	prometheus.MustRegister(MailSent)
	prometheus.MustRegister(MailFailed)
	prometheus.MustRegister(MailRetryScheduled)
	prometheus.MustRegister(MailQueueDropped)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
