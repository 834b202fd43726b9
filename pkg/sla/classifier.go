// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

// Package sla classifies subtasks against their daily start time. The
// classifier is pure and stateless; every call recomputes from the clock.
package sla

import (
	"fmt"
	"time"

	"github.com/finopscloud/sla-engine/pkg/task"
)

// Kind is the classification outcome.
type Kind string

const (
	KindNone    Kind = "none"
	KindWarning Kind = "warning"
	KindOverdue Kind = "overdue"
)

// DefaultWarningWindow is how long before the start time a pending subtask
// counts as "warning".
const DefaultWarningWindow = 15 * time.Minute

// Classification is the result of evaluating one subtask.
type Classification struct {
	Kind Kind
	// OffsetMinutes is minutes past the start time for overdue, or minutes
	// remaining until the start time for warning. Zero otherwise.
	OffsetMinutes int
}

// Classifier evaluates subtasks against their configured start times.
type Classifier struct {
	WarningWindow time.Duration
}

// NewClassifier returns a Classifier with the given warning window, or the
// default when zero.
func NewClassifier(warningWindow time.Duration) Classifier {
	if warningWindow <= 0 {
		warningWindow = DefaultWarningWindow
	}
	return Classifier{WarningWindow: warningWindow}
}

// Classify computes the SLA state of a subtask at the given instant.
// Completed subtasks and subtasks without a start time are never
// classified. Minutes are floor-divided from the raw delta; there is no
// rounding up.
func (c Classifier) Classify(startTime string, status task.Status, now time.Time) Classification {
	if status == task.StatusCompleted || startTime == "" {
		return Classification{Kind: KindNone}
	}

	start, err := startOn(now, startTime)
	if err != nil {
		return Classification{Kind: KindNone}
	}

	delta := now.Sub(start)

	switch {
	case delta > 0 && (status == task.StatusPending || status == task.StatusOverdue):
		return Classification{Kind: KindOverdue, OffsetMinutes: int(delta.Milliseconds() / 60000)}
	case delta <= 0 && -delta <= c.WarningWindow && status == task.StatusPending:
		return Classification{Kind: KindWarning, OffsetMinutes: int((-delta).Milliseconds() / 60000)}
	default:
		return Classification{Kind: KindNone}
	}
}

// TimeSinceStart renders a display label for how far a subtask is from its
// start time. Any offset within the warning window on either side of the
// start collapses into "needs to start". Display only; never feeds back
// into classification.
func (c Classifier) TimeSinceStart(startTime string, now time.Time) string {
	if startTime == "" {
		return ""
	}
	start, err := startOn(now, startTime)
	if err != nil {
		return ""
	}

	delta := now.Sub(start)
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	if abs <= c.WarningWindow {
		return "needs to start"
	}

	minutes := int(abs.Milliseconds() / 60000)
	if delta > 0 {
		return fmt.Sprintf("%s overdue", formatMinutes(minutes))
	}
	return fmt.Sprintf("starts in %s", formatMinutes(minutes))
}

// startOn anchors a wall-clock "HH:MM" start time onto now's calendar date
// in now's location.
func startOn(now time.Time, startTime string) (time.Time, error) {
	hour, minute, err := task.ParseStartTime(startTime)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, now.Location()), nil
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
