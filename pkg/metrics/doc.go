// Package metrics defines Prometheus metrics for the SLA engine, covering
// the evaluation sweep, status transitions, escalation alerting, and mail
// delivery.
package metrics
