// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finopscloud/sla-engine/pkg/task"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func activeTask(r task.Recurrence) *task.Task {
	return &task.Task{ID: "t1", Active: true, Recurrence: r}
}

func TestIsActiveOn_Daily(t *testing.T) {
	e := Evaluator{}
	tk := activeTask(task.Recurrence{Kind: task.RecurDaily, EffectiveFrom: date(2025, 6, 10)})

	assert.False(t, e.IsActiveOn(tk, date(2025, 6, 9)))
	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 10)))
	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 11)))
	assert.True(t, e.IsActiveOn(tk, date(2026, 1, 1)))

	// Mid-day timestamps truncate to the calendar date.
	assert.True(t, e.IsActiveOn(tk, time.Date(2025, 6, 10, 23, 59, 0, 0, time.Local)))
}

func TestIsActiveOn_Weekly(t *testing.T) {
	e := Evaluator{}
	// 2025-06-02 is a Monday.
	tk := activeTask(task.Recurrence{
		Kind:          task.RecurWeekly,
		Weekdays:      []time.Weekday{time.Monday, time.Wednesday},
		EffectiveFrom: date(2025, 6, 2),
	})

	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 2)))  // Mon
	assert.False(t, e.IsActiveOn(tk, date(2025, 6, 3))) // Tue
	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 4)))  // Wed
	assert.False(t, e.IsActiveOn(tk, date(2025, 6, 6))) // Fri
	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 9)))  // next Mon

	// Before the effective date even on a matching weekday.
	assert.False(t, e.IsActiveOn(tk, date(2025, 5, 26))) // prior Mon
}

func TestIsActiveOn_WeeklyEmptyWeekdays(t *testing.T) {
	e := Evaluator{}
	tk := activeTask(task.Recurrence{Kind: task.RecurWeekly, EffectiveFrom: date(2025, 1, 1)})

	for d := 0; d < 14; d++ {
		assert.False(t, e.IsActiveOn(tk, date(2025, 6, 1).AddDate(0, 0, d)))
	}
}

func TestIsActiveOn_MonthlyExactDate(t *testing.T) {
	e := Evaluator{}
	tk := activeTask(task.Recurrence{Kind: task.RecurMonthly, EffectiveFrom: date(2025, 6, 15)})

	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 15)))
	assert.False(t, e.IsActiveOn(tk, date(2025, 7, 15)))
	assert.False(t, e.IsActiveOn(tk, date(2025, 6, 14)))
	assert.False(t, e.IsActiveOn(tk, date(2025, 6, 16)))
}

func TestIsActiveOn_MonthlyDayOfMonth(t *testing.T) {
	e := Evaluator{MonthlyDayOfMonth: true}
	tk := activeTask(task.Recurrence{Kind: task.RecurMonthly, EffectiveFrom: date(2025, 6, 15)})

	assert.True(t, e.IsActiveOn(tk, date(2025, 6, 15)))
	assert.True(t, e.IsActiveOn(tk, date(2025, 7, 15)))
	assert.True(t, e.IsActiveOn(tk, date(2026, 2, 15)))
	assert.False(t, e.IsActiveOn(tk, date(2025, 7, 14)))
	assert.False(t, e.IsActiveOn(tk, date(2025, 5, 15))) // before effective-from
}

func TestIsActiveOn_InactiveTask(t *testing.T) {
	e := Evaluator{}
	tk := activeTask(task.Recurrence{Kind: task.RecurDaily, EffectiveFrom: date(2025, 1, 1)})
	tk.Active = false

	assert.False(t, e.IsActiveOn(tk, date(2025, 6, 1)))
	assert.False(t, e.IsActiveOn(nil, date(2025, 6, 1)))
}
