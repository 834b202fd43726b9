// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/task"
)

func sampleDoc() taskDoc {
	return taskDoc{
		ID:     "t1",
		Name:   "billing close",
		Client: "acme",
		Recurrence: recurrenceDoc{
			Kind:          "weekly",
			Weekdays:      []int{1, 3},
			EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Active: true,
		Status: "pending",
		Subtasks: []subtaskDoc{
			{ID: "s1", Name: "export report", Position: 1, StartTime: "09:00", Status: "pending"},
			{ID: "s2", Name: "reconcile", Position: 2, StartTime: "10:30", Status: "delayed", DelayReason: "awaiting_input", DelayNotes: "vendor invoice pending"},
		},
	}
}

func TestTaskDocToTask(t *testing.T) {
	got, err := sampleDoc().toTask(system.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Equal(t, task.RecurWeekly, got.Recurrence.Kind)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, got.Recurrence.Weekdays)

	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, task.StatusDelayed, got.Subtasks[1].Status)
	assert.Equal(t, task.DelayAwaitingInput, got.Subtasks[1].DelayReason)
	assert.Equal(t, "vendor invoice pending", got.Subtasks[1].DelayNotes)
}

func TestTaskDocToTaskUnknownTaskStatus(t *testing.T) {
	doc := sampleDoc()
	doc.Status = "archived"

	_, err := doc.toTask(system.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t1")
}

func TestTaskDocToTaskUnknownSubtaskStatus(t *testing.T) {
	doc := sampleDoc()
	doc.Subtasks[0].Status = "paused"

	_, err := doc.toTask(system.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s1")
}

func TestTaskDocToTaskDropsOutOfRangeWeekdays(t *testing.T) {
	doc := sampleDoc()
	doc.Recurrence.Weekdays = []int{1, 9, -2}

	got, err := doc.toTask(system.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday}, got.Recurrence.Weekdays)
}
