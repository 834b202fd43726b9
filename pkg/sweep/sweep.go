// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

// Package sweep runs the periodic evaluation pass: fetch the task
// snapshot, filter to tasks active today, classify every subtask,
// auto-promote breached pending subtasks, and resync the escalation
// timers. One coordinated tick owns the whole pass so independent
// intervals cannot race over the same snapshot.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/alert"
	"github.com/finopscloud/sla-engine/pkg/escalation"
	"github.com/finopscloud/sla-engine/pkg/lifecycle"
	"github.com/finopscloud/sla-engine/pkg/metrics"
	"github.com/finopscloud/sla-engine/pkg/schedule"
	"github.com/finopscloud/sla-engine/pkg/sla"
	"github.com/finopscloud/sla-engine/pkg/store"
	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// DefaultInterval is the sweep cadence.
const DefaultInterval = 30 * time.Second

// Sweep drives the auto-promotion pass.
type Sweep struct {
	store      store.TaskStore
	sched      schedule.Evaluator
	classifier sla.Classifier
	manager    *lifecycle.Manager
	escalation *escalation.Scheduler
	sink       alert.Sink
	log        *zap.SugaredLogger
	now        func() time.Time

	// WarningAlerts enables the one-shot pre-breach alert per subtask
	// per day.
	WarningAlerts bool

	mu     sync.Mutex
	warned map[string]string // subtask key -> date of last warning
}

// New wires a Sweep. escalationSched and sink may be nil.
func New(ts store.TaskStore, sched schedule.Evaluator, classifier sla.Classifier, manager *lifecycle.Manager, escalationSched *escalation.Scheduler, sink alert.Sink, log *zap.SugaredLogger) *Sweep {
	if log == nil {
		log = zap.S()
	}
	return &Sweep{
		store:      ts,
		sched:      sched,
		classifier: classifier,
		manager:    manager,
		escalation: escalationSched,
		sink:       sink,
		log:        log.Named("sweep"),
		now:        time.Now,
		warned:     map[string]string{},
	}
}

// RunOnce executes one evaluation pass. A fetch failure degrades to "no
// active tasks": the pass is skipped, previously computed timer state is
// left untouched, and the next tick retries.
func (s *Sweep) RunOnce(ctx context.Context) error {
	now := s.now()

	tasks, err := s.store.FetchTasks(ctx, now)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("fetch_failed").Inc()
		metrics.SweepFetchFailures.Inc()
		s.log.Errorw("Task fetch failed, skipping sweep cycle", "error", err)
		return errors.Wrap(err, "task fetch failed")
	}

	active := make([]task.Task, 0, len(tasks))
	for i := range tasks {
		if s.sched.IsActiveOn(&tasks[i], now) {
			active = append(active, tasks[i])
		}
	}

	promoted := 0
	for i := range active {
		t := &active[i]
		for _, st := range t.Subtasks {
			c := s.classifier.Classify(st.StartTime, st.Status, now)
			switch c.Kind {
			case sla.KindOverdue:
				if st.Status != task.StatusPending {
					continue
				}
				updated, err := s.manager.AutoPromote(ctx, t.ID, st.ID)
				if err != nil {
					if errors.Is(err, lifecycle.ErrNotPending) {
						// Lost a race with a user transition; the next
						// sweep re-evaluates from a fresh snapshot.
						continue
					}
					s.log.With(system.TaskFields(t.ID, st.ID)...).Errorw("Auto-promotion failed",
						"error", err)
					continue
				}
				active[i] = *updated
				promoted++
				metrics.SubtasksAutoPromoted.WithLabelValues(t.Client).Inc()
				s.log.With(system.TaskFields(t.ID, st.ID)...).Infow("Auto-promoted breached subtask to overdue",
					"overdueMinutes", c.OffsetMinutes)
			case sla.KindWarning:
				s.maybeWarn(ctx, t, st, c.OffsetMinutes, now)
			}
		}
	}

	if s.escalation != nil {
		if err := s.escalation.Resync(ctx, active); err != nil {
			s.log.Errorw("Escalation resync reported errors", "error", err)
		}
	}

	metrics.SweepRuns.WithLabelValues("ok").Inc()
	s.log.Debugw("Sweep pass complete",
		"fetched", len(tasks),
		"active", len(active),
		"promoted", promoted)
	return nil
}

// maybeWarn dispatches at most one pre-breach warning per subtask per
// day when warning alerts are enabled.
func (s *Sweep) maybeWarn(ctx context.Context, t *task.Task, st task.Subtask, minutesRemaining int, now time.Time) {
	if !s.WarningAlerts || s.sink == nil {
		return
	}

	key := t.ID + "/" + st.ID
	day := now.Format("2006-01-02")
	s.mu.Lock()
	if s.warned[key] == day {
		s.mu.Unlock()
		return
	}
	s.warned[key] = day
	s.mu.Unlock()

	a := alert.NewWarningAlert(t, st, minutesRemaining, now)
	if err := s.sink.Write(ctx, &a); err != nil {
		metrics.AlertDispatchFailures.WithLabelValues(s.sink.Name()).Inc()
		s.log.With(system.TaskFields(t.ID, st.ID)...).Errorw("Failed to dispatch warning alert",
			"error", err)
		return
	}
	metrics.AlertsDispatched.WithLabelValues(string(a.Type)).Inc()
}

// Run executes the sweep on its cadence until the context is cancelled.
// One pass runs immediately on start.
func (s *Sweep) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.log.Infow("Sweep started", "interval", interval)

	if err := s.RunOnce(ctx); err != nil {
		s.log.Warnw("Initial sweep pass failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweep stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warnw("Sweep pass failed", "error", err)
			}
		}
	}
}
