// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle implements the subtask status state machine. It is
// the sole mutation entry point for subtask status: the sweep, the HTTP
// API, and the CLI all funnel their changes through Manager.Transition,
// which serializes concurrent callers per task.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/alert"
	"github.com/finopscloud/sla-engine/pkg/metrics"
	"github.com/finopscloud/sla-engine/pkg/schedule"
	"github.com/finopscloud/sla-engine/pkg/store"
	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// SystemActor attributes sweep-initiated transitions. Only this actor may
// move a subtask into overdue.
var SystemActor = task.PersonRef{ID: "system", Name: "sla-engine"}

// ErrNotPending is returned when an overdue promotion targets a subtask
// that has already left pending. The sweep treats this as a stale
// snapshot and moves on.
var ErrNotPending = errors.New("subtask is no longer pending")

// ErrOverdueNotAllowed rejects user attempts to set a subtask overdue;
// only the sweep promotes into that state.
var ErrOverdueNotAllowed = errors.New("only the automatic sweep may set a subtask overdue")

// Notifier delivers the reporting-manager notification sent when a
// subtask is moved to delayed. Delivery failures are logged by the
// implementation and never block the transition.
type Notifier interface {
	NotifyDelayed(t *task.Task, st *task.Subtask, actor task.PersonRef)
}

// TransitionRequest carries one requested status change.
type TransitionRequest struct {
	TaskID    string
	SubtaskID string
	To        task.Status
	Actor     task.PersonRef

	// Required when To is delayed.
	DelayReason task.DelayReason
	DelayNotes  string
}

// parkedReason is an overdue-exit reason recorded ahead of the transition
// that will consume it.
type parkedReason struct {
	reason task.OverdueReason
	notes  string
	actor  task.PersonRef
	at     time.Time
}

// Manager validates and applies subtask status transitions.
type Manager struct {
	store    store.TaskStore
	sched    schedule.Evaluator
	notifier Notifier
	sink     alert.Sink
	log      *zap.SugaredLogger
	now      func() time.Time

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	parked map[string]parkedReason
}

// NewManager wires a Manager. notifier and sink may be nil; the
// corresponding side effects are then skipped.
func NewManager(ts store.TaskStore, sched schedule.Evaluator, notifier Notifier, sink alert.Sink, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.S()
	}
	return &Manager{
		store:    ts,
		sched:    sched,
		notifier: notifier,
		sink:     sink,
		log:      log.Named("lifecycle"),
		now:      time.Now,
		locks:    map[string]*sync.Mutex{},
		parked:   map[string]parkedReason{},
	}
}

// SetClock overrides the time source. Used by tests and by callers that
// need deterministic evaluation.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) taskLock(taskID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[taskID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[taskID] = l
	}
	return l
}

func parkKey(taskID, subtaskID string) string {
	return taskID + "/" + subtaskID
}

// RecordOverdueReason captures the mandatory reason ahead of an
// overdue-exit transition. The reason is parked until the next transition
// on the same subtask consumes it; the side-record is persisted at that
// point, together with the status write.
func (m *Manager) RecordOverdueReason(ctx context.Context, taskID, subtaskID string, reason task.OverdueReason, notes string, actor task.PersonRef) error {
	if err := task.ValidateOverdueReason(reason, notes); err != nil {
		return err
	}

	t, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return errors.Wrapf(err, "failed to load task %s", taskID)
	}
	st := t.Subtask(subtaskID)
	if st == nil {
		return errors.Wrapf(ErrUnknownSubtask, "subtask %s in task %s", subtaskID, taskID)
	}
	if st.Status != task.StatusOverdue {
		return fmt.Errorf("subtask %s/%s is %s, not overdue", taskID, subtaskID, st.Status)
	}

	m.mu.Lock()
	m.parked[parkKey(taskID, subtaskID)] = parkedReason{
		reason: reason,
		notes:  notes,
		actor:  actor,
		at:     m.now(),
	}
	m.mu.Unlock()

	m.log.With(system.TaskFields(taskID, subtaskID)...).Infow("Recorded overdue reason",
		"reason", reason,
		"actor", actor.Display())
	return nil
}

func (m *Manager) takeParked(taskID, subtaskID string) (parkedReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parked[parkKey(taskID, subtaskID)]
	if ok {
		delete(m.parked, parkKey(taskID, subtaskID))
	}
	return p, ok
}

// Transition validates and applies one status change. Rejections carry a
// typed error so callers can prompt for the missing precondition; the
// change is never silently dropped or silently applied.
func (m *Manager) Transition(ctx context.Context, req TransitionRequest) (*task.Task, error) {
	if !req.To.Valid() {
		metrics.TransitionsRejected.WithLabelValues("invalid_status").Inc()
		return nil, fmt.Errorf("invalid target status %q", req.To)
	}
	if req.To == task.StatusOverdue && req.Actor.ID != SystemActor.ID {
		metrics.TransitionsRejected.WithLabelValues("forbidden_actor").Inc()
		return nil, ErrOverdueNotAllowed
	}

	lock := m.taskLock(req.TaskID)
	if !lock.TryLock() {
		metrics.TransitionsRejected.WithLabelValues("conflict").Inc()
		return nil, &TransitionConflictError{TaskID: req.TaskID}
	}
	defer lock.Unlock()

	t, err := m.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load task %s", req.TaskID)
	}
	st := t.Subtask(req.SubtaskID)
	if st == nil {
		return nil, errors.Wrapf(ErrUnknownSubtask, "subtask %s in task %s", req.SubtaskID, req.TaskID)
	}

	now := m.now()
	if !m.sched.IsActiveOn(t, now) {
		metrics.TransitionsRejected.WithLabelValues("not_scheduled").Inc()
		return nil, &NotScheduledTodayError{TaskID: req.TaskID, Date: now}
	}

	from := st.Status
	if from == req.To {
		// Re-applying the current status is a no-op, not a conflict.
		return t, nil
	}
	if req.To == task.StatusOverdue && from != task.StatusPending {
		metrics.TransitionsRejected.WithLabelValues("not_pending").Inc()
		return nil, ErrNotPending
	}

	var record *task.OverdueRecord
	if from == task.StatusOverdue {
		parked, ok := m.takeParked(req.TaskID, req.SubtaskID)
		if !ok {
			metrics.TransitionsRejected.WithLabelValues("missing_overdue_reason").Inc()
			return nil, &MissingReasonError{TaskID: req.TaskID, SubtaskID: req.SubtaskID, Kind: ReasonKindOverdue}
		}
		record = &task.OverdueRecord{
			TaskID:    req.TaskID,
			SubtaskID: req.SubtaskID,
			Reason:    parked.reason,
			Notes:     parked.notes,
			Actor:     parked.actor,
			Timestamp: now,
		}
	}

	if req.To == task.StatusDelayed {
		if err := task.ValidateDelayReason(req.DelayReason, req.DelayNotes); err != nil {
			// Put the parked reason back so the caller can retry after
			// fixing only the delay side.
			if record != nil {
				m.mu.Lock()
				m.parked[parkKey(req.TaskID, req.SubtaskID)] = parkedReason{
					reason: record.Reason, notes: record.Notes, actor: record.Actor, at: now,
				}
				m.mu.Unlock()
			}
			metrics.TransitionsRejected.WithLabelValues("missing_delay_reason").Inc()
			return nil, &MissingReasonError{TaskID: req.TaskID, SubtaskID: req.SubtaskID, Kind: ReasonKindDelay}
		}
	}

	update := store.StatusUpdate{
		Status: req.To,
		Actor:  req.Actor,
	}

	st.Status = req.To
	switch req.To {
	case task.StatusInProgress:
		if st.StartedAt == nil {
			started := now
			st.StartedAt = &started
			update.StartedAt = &started
		}
	case task.StatusCompleted:
		completed := now
		st.CompletedAt = &completed
		update.CompletedAt = &completed
	case task.StatusDelayed:
		st.DelayReason = req.DelayReason
		st.DelayNotes = req.DelayNotes
		update.DelayReason = req.DelayReason
		update.DelayNotes = req.DelayNotes
	}
	if req.To != task.StatusDelayed {
		st.DelayReason = ""
		st.DelayNotes = ""
	}

	t.Status = task.AggregateStatus(t.Subtasks)
	update.TaskStatus = t.Status

	if record != nil {
		if err := m.store.RecordOverdueReason(ctx, *record); err != nil {
			return nil, errors.Wrap(err, "failed to persist overdue reason")
		}
	}
	if err := m.store.UpdateSubtaskStatus(ctx, req.TaskID, req.SubtaskID, update); err != nil {
		return nil, errors.Wrapf(err, "failed to update subtask %s/%s", req.TaskID, req.SubtaskID)
	}

	metrics.TransitionsApplied.WithLabelValues(string(req.To)).Inc()
	m.log.With(system.TaskFields(req.TaskID, req.SubtaskID)...).Infow("Applied status transition",
		"from", from,
		"to", req.To,
		"actor", req.Actor.Display(),
		"taskStatus", t.Status)

	if req.To == task.StatusDelayed {
		m.notifyDelayed(ctx, t, st, req.Actor, now)
	}

	return t, nil
}

// notifyDelayed fires the manager notification and the delay alert.
// Failures are logged and never propagated to the caller.
func (m *Manager) notifyDelayed(ctx context.Context, t *task.Task, st *task.Subtask, actor task.PersonRef, now time.Time) {
	if m.notifier != nil {
		m.notifier.NotifyDelayed(t, st, actor)
	}
	if m.sink != nil {
		a := alert.NewDelayAlert(t, *st, alert.Actor{ID: actor.ID, Name: actor.Name, Email: actor.Email}, now)
		if err := m.sink.Write(ctx, &a); err != nil {
			metrics.AlertDispatchFailures.WithLabelValues(m.sink.Name()).Inc()
			m.log.With(system.TaskFields(t.ID, st.ID)...).Errorw("Failed to dispatch delay alert",
				"error", err)
		}
	}
}

// AutoPromote moves a breached pending subtask to overdue on behalf of
// the sweep. A subtask already out of pending is left alone.
func (m *Manager) AutoPromote(ctx context.Context, taskID, subtaskID string) (*task.Task, error) {
	return m.Transition(ctx, TransitionRequest{
		TaskID:    taskID,
		SubtaskID: subtaskID,
		To:        task.StatusOverdue,
		Actor:     SystemActor,
	})
}
