// Package alert dispatches SLA alerts to configurable destinations: a
// structured log, an HTTP webhook, and Kafka. Dispatch is fire-and-forget
// from the engine's perspective; failures are logged and counted, never
// propagated into the status transition or escalation cadence.
package alert
