// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

// Package store defines the external collaborator interfaces the engine
// consumes: the task snapshot source and the status/reason write paths.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/finopscloud/sla-engine/pkg/task"
)

// ErrTaskNotFound is returned by reads and writes that name a task ID
// the store does not hold. Wrapped with the ID at the call site.
var ErrTaskNotFound = errors.New("task not found")

// StatusUpdate carries a subtask status write together with the actor and
// the recomputed aggregate task status.
type StatusUpdate struct {
	Status      task.Status
	Actor       task.PersonRef
	DelayReason task.DelayReason
	DelayNotes  string
	StartedAt   *time.Time
	CompletedAt *time.Time
	TaskStatus  task.Status
}

// TaskStore is the engine's view of the surrounding task manager. The
// engine treats every FetchTasks result as an authoritative snapshot for
// one evaluation pass.
type TaskStore interface {
	// FetchTasks returns all active tasks relevant to the given date.
	FetchTasks(ctx context.Context, date time.Time) ([]task.Task, error)

	// GetTask returns a single task by ID.
	GetTask(ctx context.Context, taskID string) (*task.Task, error)

	// UpdateSubtaskStatus applies a validated status change. This is the
	// sole write path for subtask status.
	UpdateSubtaskStatus(ctx context.Context, taskID, subtaskID string, update StatusUpdate) error

	// RecordOverdueReason persists the side-record written when an overdue
	// status is superseded.
	RecordOverdueReason(ctx context.Context, rec task.OverdueRecord) error
}
