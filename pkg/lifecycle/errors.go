// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownSubtask is returned when a transition or reason record names
// a subtask the parent task does not contain. Wrapped with both IDs at
// the call site.
var ErrUnknownSubtask = errors.New("unknown subtask")

// ReasonKind distinguishes which mandatory reason a rejected transition
// was missing.
type ReasonKind string

const (
	ReasonKindDelay   ReasonKind = "delay"
	ReasonKindOverdue ReasonKind = "overdue"
)

// NotScheduledTodayError rejects a transition attempted on a day the
// parent task is not active.
type NotScheduledTodayError struct {
	TaskID string
	Date   time.Time
}

func (e *NotScheduledTodayError) Error() string {
	return fmt.Sprintf("task %s is not scheduled on %s", e.TaskID, e.Date.Format("2006-01-02"))
}

// MissingReasonError rejects a transition that requires a reason the
// caller has not supplied yet. For overdue exits the caller is expected
// to record a reason and retry the identical request.
type MissingReasonError struct {
	TaskID    string
	SubtaskID string
	Kind      ReasonKind
}

func (e *MissingReasonError) Error() string {
	return fmt.Sprintf("subtask %s/%s requires a %s reason before this transition can be applied", e.TaskID, e.SubtaskID, e.Kind)
}

// TransitionConflictError signals that a concurrent mutation on the same
// task won the race. The caller should re-read and retry.
type TransitionConflictError struct {
	TaskID string
}

func (e *TransitionConflictError) Error() string {
	return fmt.Sprintf("concurrent status change in progress for task %s", e.TaskID)
}

// IsNotScheduledToday reports whether err is a scheduling-gate rejection.
func IsNotScheduledToday(err error) bool {
	var e *NotScheduledTodayError
	return errors.As(err, &e)
}

// IsMissingReason reports whether err is a missing-reason rejection.
func IsMissingReason(err error) bool {
	var e *MissingReasonError
	return errors.As(err, &e)
}

// IsTransitionConflict reports whether err is a lost-race rejection.
func IsTransitionConflict(err error) bool {
	var e *TransitionConflictError
	return errors.As(err, &e)
}
