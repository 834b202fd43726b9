// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"strings"
)

// Status is the closed set of subtask lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDelayed    Status = "delayed"
	StatusOverdue    Status = "overdue"
)

// knownStatuses maps every accepted wire spelling to its canonical value.
// Legacy records used hyphenated and title-cased spellings; they are
// coerced here, once, and never propagated further.
var knownStatuses = map[string]Status{
	"pending":     StatusPending,
	"in_progress": StatusInProgress,
	"in-progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"completed":   StatusCompleted,
	"delayed":     StatusDelayed,
	"overdue":     StatusOverdue,
}

// ParseStatus coerces a raw status string into a canonical Status.
// Unknown values are rejected so they cannot leak into the state machine.
func ParseStatus(raw string) (Status, error) {
	s, ok := knownStatuses[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown subtask status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the canonical status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelayed, StatusOverdue:
		return true
	}
	return false
}

// Terminalish reports whether the status represents finished work for
// aggregate purposes. Only completed counts; overdue and delayed are
// outstanding by definition.
func (s Status) Terminalish() bool {
	return s == StatusCompleted
}

// AggregateStatus derives a parent task status from its subtasks.
// Precedence: any overdue wins, then any delayed, then completed when
// every subtask is completed, then in_progress once at least one subtask
// has been completed, otherwise pending.
func AggregateStatus(subtasks []Subtask) Status {
	if len(subtasks) == 0 {
		return StatusPending
	}

	completed := 0
	anyDelayed := false
	for _, st := range subtasks {
		switch st.Status {
		case StatusOverdue:
			return StatusOverdue
		case StatusDelayed:
			anyDelayed = true
		case StatusCompleted:
			completed++
		}
	}

	if anyDelayed {
		return StatusDelayed
	}
	if completed == len(subtasks) {
		return StatusCompleted
	}
	if completed > 0 {
		return StatusInProgress
	}
	return StatusPending
}
