// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecurrenceKind selects how a task's active days are derived.
type RecurrenceKind string

const (
	RecurDaily   RecurrenceKind = "daily"
	RecurWeekly  RecurrenceKind = "weekly"
	RecurMonthly RecurrenceKind = "monthly"
)

// Recurrence describes when a task is scheduled to run.
// Weekly tasks carry at most two weekdays.
type Recurrence struct {
	Kind          RecurrenceKind `json:"kind" bson:"kind"`
	Weekdays      []time.Weekday `json:"weekdays,omitempty" bson:"weekdays,omitempty"`
	EffectiveFrom time.Time      `json:"effectiveFrom" bson:"effectiveFrom"`
}

// Validate rejects malformed recurrence descriptors at the ingestion
// boundary. An empty weekly weekday set is a valid (never-active)
// misconfiguration, not an error.
func (r Recurrence) Validate() error {
	switch r.Kind {
	case RecurDaily, RecurMonthly:
	case RecurWeekly:
		if len(r.Weekdays) > 2 {
			return fmt.Errorf("weekly recurrence allows at most two weekdays, got %d", len(r.Weekdays))
		}
	default:
		return fmt.Errorf("unknown recurrence kind %q", r.Kind)
	}
	if r.EffectiveFrom.IsZero() {
		return fmt.Errorf("recurrence requires an effective-from date")
	}
	return nil
}

// Subtask is a single recurring operational step within a task.
// StartTime is a wall-clock "HH:MM" string with no date component.
type Subtask struct {
	ID          string      `json:"id" bson:"id"`
	Name        string      `json:"name" bson:"name"`
	Position    int         `json:"position" bson:"position"`
	StartTime   string      `json:"startTime,omitempty" bson:"startTime,omitempty"`
	Status      Status      `json:"status" bson:"status"`
	StartedAt   *time.Time  `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	DelayReason DelayReason `json:"delayReason,omitempty" bson:"delayReason,omitempty"`
	DelayNotes  string      `json:"delayNotes,omitempty" bson:"delayNotes,omitempty"`
}

// Task is a recurring operational task owned by a client, carrying an
// ordered list of subtasks.
type Task struct {
	ID                 string      `json:"id" bson:"_id"`
	Name               string      `json:"name" bson:"name"`
	Client             string      `json:"client" bson:"client"`
	Assignees          []PersonRef `json:"assignees,omitempty" bson:"assignees,omitempty"`
	ReportingManagers  []PersonRef `json:"reportingManagers,omitempty" bson:"reportingManagers,omitempty"`
	EscalationManagers []PersonRef `json:"escalationManagers,omitempty" bson:"escalationManagers,omitempty"`
	Recurrence         Recurrence  `json:"recurrence" bson:"recurrence"`
	Active             bool        `json:"active" bson:"active"`
	Status             Status      `json:"status" bson:"status"`
	Subtasks           []Subtask   `json:"subtasks,omitempty" bson:"subtasks,omitempty"`
}

// Subtask returns the subtask with the given ID, or nil.
func (t *Task) Subtask(id string) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// HasOverdue reports whether any subtask is currently overdue.
func (t *Task) HasOverdue() bool {
	for _, st := range t.Subtasks {
		if st.Status == StatusOverdue {
			return true
		}
	}
	return false
}

// OverdueSubtasks returns the subtasks currently in overdue, in position
// order (the slice is already ordered at ingestion).
func (t *Task) OverdueSubtasks() []Subtask {
	var out []Subtask
	for _, st := range t.Subtasks {
		if st.Status == StatusOverdue {
			out = append(out, st)
		}
	}
	return out
}

// ParseStartTime parses a wall-clock "HH:MM" string into hour and minute.
func ParseStartTime(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid start time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid start hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid start minute in %q", s)
	}
	return hour, minute, nil
}

// OverdueRecord is the side-record written when a prior overdue status is
// superseded. It carries who resolved the breach and why.
type OverdueRecord struct {
	TaskID    string        `json:"taskID" bson:"taskID"`
	SubtaskID string        `json:"subtaskID" bson:"subtaskID"`
	Reason    OverdueReason `json:"reason" bson:"reason"`
	Notes     string        `json:"notes,omitempty" bson:"notes,omitempty"`
	Actor     PersonRef     `json:"actor" bson:"actor"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
}
