// Package api implements the HTTP API server (Gin-based) for the SLA
// engine, providing REST endpoints for task snapshots with SLA
// annotations, subtask status transitions, overdue reasons, and the
// per-task escalation countdown.
package api
