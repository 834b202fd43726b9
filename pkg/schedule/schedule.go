// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

// Package schedule decides whether a task is scheduled to run on a given
// calendar date. All functions are pure and safe for concurrent use.
package schedule

import (
	"time"

	"github.com/finopscloud/sla-engine/pkg/task"
)

// Evaluator resolves recurrence rules against calendar dates.
// MonthlyDayOfMonth switches monthly recurrence from the historical
// exact-calendar-date match to a repeating day-of-month rule. The exact
// match is the default; it mirrors the original product behavior where a
// "monthly" task only ever fires on its effective-from date.
type Evaluator struct {
	MonthlyDayOfMonth bool
}

// IsActiveOn reports whether the task is scheduled on the given date.
// Inactive tasks are never scheduled.
func (e Evaluator) IsActiveOn(t *task.Task, date time.Time) bool {
	if t == nil || !t.Active {
		return false
	}
	return e.isActive(t.Recurrence, date)
}

func (e Evaluator) isActive(r task.Recurrence, date time.Time) bool {
	day := truncateToDay(date)
	from := truncateToDay(r.EffectiveFrom)

	if day.Before(from) {
		return false
	}

	switch r.Kind {
	case task.RecurDaily:
		return true
	case task.RecurWeekly:
		// An empty weekday set means the task never runs. Misconfigured,
		// not an error.
		for _, wd := range r.Weekdays {
			if day.Weekday() == wd {
				return true
			}
		}
		return false
	case task.RecurMonthly:
		if e.MonthlyDayOfMonth {
			return day.Day() == from.Day()
		}
		return day.Equal(from)
	default:
		return false
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
