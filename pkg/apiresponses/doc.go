// Package apiresponses provides standardized HTTP API response helpers
// (error, not-found, conflict, missing-reason, etc.) shared across API
// controllers without import cycles.
package apiresponses
