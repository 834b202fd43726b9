// Package task defines the task and subtask records the engine operates on,
// together with the closed status enumeration and the delay/overdue reason
// taxonomies. Records are normalized at the ingestion boundary; nothing in
// this package re-derives identity or status from formatted strings.
package task
