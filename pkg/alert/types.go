// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finopscloud/sla-engine/pkg/task"
)

// Type identifies the kind of alert being dispatched.
type Type string

const (
	// TypeSLAOverdue is the repeating escalation alert for a breached subtask.
	TypeSLAOverdue Type = "sla_overdue"
	// TypeSLAWarning is the optional one-shot pre-breach alert.
	TypeSLAWarning Type = "sla_warning"
	// TypeDelayReported fires when a subtask is moved to delayed.
	TypeDelayReported Type = "delay_reported"
)

// Actor identifies who or what caused the alert. The sweep and the
// escalation scheduler use the system actor.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// SystemActor is the attribution used for engine-initiated alerts.
var SystemActor = Actor{ID: "system", Name: "sla-engine"}

// Alert is a single dispatchable alert event.
type Alert struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	TaskID    string            `json:"taskID"`
	SubtaskID string            `json:"subtaskID"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     Actor             `json:"actor"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewOverdueAlert builds an sla_overdue alert with the templated message
// naming the subtask, task, and client.
func NewOverdueAlert(t *task.Task, st task.Subtask, overdueMinutes int, now time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Type:      TypeSLAOverdue,
		TaskID:    t.ID,
		SubtaskID: st.ID,
		Message: fmt.Sprintf("Subtask %q of task %q for client %q is overdue by %d minute(s)",
			st.Name, t.Name, t.Client, overdueMinutes),
		Timestamp: now,
		Actor:     SystemActor,
		Details: map[string]string{
			"task":           t.Name,
			"subtask":        st.Name,
			"client":         t.Client,
			"startTime":      st.StartTime,
			"overdueMinutes": fmt.Sprintf("%d", overdueMinutes),
		},
	}
}

// NewDelayAlert builds a delay_reported alert when a subtask is moved to
// delayed by a user.
func NewDelayAlert(t *task.Task, st task.Subtask, actor Actor, now time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Type:      TypeDelayReported,
		TaskID:    t.ID,
		SubtaskID: st.ID,
		Message: fmt.Sprintf("Subtask %q of task %q for client %q was marked delayed (%s)",
			st.Name, t.Name, t.Client, st.DelayReason),
		Timestamp: now,
		Actor:     actor,
		Details: map[string]string{
			"task":        t.Name,
			"subtask":     st.Name,
			"client":      t.Client,
			"delayReason": string(st.DelayReason),
			"delayNotes":  st.DelayNotes,
		},
	}
}

// NewWarningAlert builds an sla_warning alert for a subtask approaching
// its start time.
func NewWarningAlert(t *task.Task, st task.Subtask, minutesRemaining int, now time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Type:      TypeSLAWarning,
		TaskID:    t.ID,
		SubtaskID: st.ID,
		Message: fmt.Sprintf("Subtask %q of task %q for client %q starts in %d minute(s)",
			st.Name, t.Name, t.Client, minutesRemaining),
		Timestamp: now,
		Actor:     SystemActor,
		Details: map[string]string{
			"task":             t.Name,
			"subtask":          st.Name,
			"client":           t.Client,
			"startTime":        st.StartTime,
			"minutesRemaining": fmt.Sprintf("%d", minutesRemaining),
		},
	}
}
