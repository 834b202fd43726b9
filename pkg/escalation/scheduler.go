// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

// Package escalation maintains one durable timer per task with overdue
// subtasks and dispatches repeating alerts on a fixed cadence.
package escalation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/alert"
	"github.com/finopscloud/sla-engine/pkg/mail"
	"github.com/finopscloud/sla-engine/pkg/metrics"
	"github.com/finopscloud/sla-engine/pkg/sla"
	"github.com/finopscloud/sla-engine/pkg/store"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// DefaultInterval is the alert cadence per overdue task.
const DefaultInterval = 15 * time.Minute

// Scheduler owns the escalation timers. Resync is driven by the sweep
// after each evaluation pass; Tick fires due timers on the wall clock.
type Scheduler struct {
	timers     TimerStore
	tasks      store.TaskStore
	classifier sla.Classifier
	sink       alert.Sink
	mailQueue  *mail.Queue
	interval   time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewScheduler wires a Scheduler. mailQueue may be nil to disable the
// escalation emails; sink may be nil to disable alert dispatch.
func NewScheduler(timers TimerStore, tasks store.TaskStore, classifier sla.Classifier, sink alert.Sink, mailQueue *mail.Queue, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.S()
	}
	return &Scheduler{
		timers:     timers,
		tasks:      tasks,
		classifier: classifier,
		sink:       sink,
		mailQueue:  mailQueue,
		interval:   interval,
		log:        log.Named("escalation"),
		now:        time.Now,
	}
}

// SetClock overrides the time source for deterministic evaluation.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Resync reconciles timers against a fresh task snapshot: a task gaining
// its first overdue subtask gets a timer one full interval out, a task
// with no overdue subtask left loses its timer.
func (s *Scheduler) Resync(ctx context.Context, tasks []task.Task) error {
	now := s.now()
	var lastErr error
	for i := range tasks {
		t := &tasks[i]
		existing, err := s.timers.Get(ctx, t.ID)
		if err != nil {
			s.log.Errorw("Failed to read escalation timer", "task", t.ID, "error", err)
			lastErr = err
			continue
		}

		switch {
		case t.HasOverdue() && existing == nil:
			timer := Timer{TaskID: t.ID, NextAlertAt: now.Add(s.interval), Interval: s.interval}
			if err := s.timers.Put(ctx, timer); err != nil {
				s.log.Errorw("Failed to create escalation timer", "task", t.ID, "error", err)
				lastErr = err
				continue
			}
			s.log.Infow("Created escalation timer",
				"task", t.ID,
				"nextAlertAt", timer.NextAlertAt)
		case !t.HasOverdue() && existing != nil:
			if err := s.timers.Delete(ctx, t.ID); err != nil {
				s.log.Errorw("Failed to delete escalation timer", "task", t.ID, "error", err)
				lastErr = err
				continue
			}
			s.log.Infow("Deleted escalation timer, no overdue subtasks left", "task", t.ID)
		}
	}
	s.updateGauge(ctx)
	return lastErr
}

// Tick fires every due timer. For each the task is re-read so the alert
// set reflects the current overdue subtasks, then next_alert_at advances
// one interval regardless of dispatch success.
func (s *Scheduler) Tick(ctx context.Context) {
	timers, err := s.timers.List(ctx)
	if err != nil {
		s.log.Errorw("Failed to list escalation timers", "error", err)
		return
	}

	now := s.now()
	for _, timer := range timers {
		if !timer.Due(now) {
			continue
		}
		s.fire(ctx, timer, now)
	}
	s.updateGauge(ctx)
}

func (s *Scheduler) fire(ctx context.Context, timer Timer, now time.Time) {
	t, err := s.tasks.GetTask(ctx, timer.TaskID)
	if err != nil {
		// The task may have been deleted upstream; drop the timer so it
		// does not fire forever against a missing record.
		s.log.Warnw("Dropping escalation timer for unreadable task",
			"task", timer.TaskID,
			"error", err)
		if derr := s.timers.Delete(ctx, timer.TaskID); derr != nil {
			s.log.Errorw("Failed to delete stale escalation timer", "task", timer.TaskID, "error", derr)
		}
		return
	}

	overdue := t.OverdueSubtasks()
	if len(overdue) == 0 {
		if err := s.timers.Delete(ctx, timer.TaskID); err != nil {
			s.log.Errorw("Failed to delete escalation timer", "task", timer.TaskID, "error", err)
		}
		return
	}

	for _, st := range overdue {
		minutes := s.overdueMinutes(st, now)
		a := alert.NewOverdueAlert(t, st, minutes, now)
		s.dispatch(ctx, &a)
		s.notifyOverdue(t, st, minutes, now)
	}

	timer.NextAlertAt = now.Add(timer.Interval)
	if err := s.timers.Put(ctx, timer); err != nil {
		s.log.Errorw("Failed to advance escalation timer", "task", timer.TaskID, "error", err)
	}
}

// overdueMinutes recomputes the breach size for the alert message. A
// subtask without a parseable start time reports zero.
func (s *Scheduler) overdueMinutes(st task.Subtask, now time.Time) int {
	c := s.classifier.Classify(st.StartTime, st.Status, now)
	if c.Kind != sla.KindOverdue {
		return 0
	}
	return c.OffsetMinutes
}

func (s *Scheduler) dispatch(ctx context.Context, a *alert.Alert) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Write(ctx, a); err != nil {
		metrics.AlertDispatchFailures.WithLabelValues(s.sink.Name()).Inc()
		s.log.Errorw("Failed to dispatch escalation alert",
			"task", a.TaskID,
			"subtask", a.SubtaskID,
			"error", err)
		return
	}
	metrics.AlertsDispatched.WithLabelValues(string(a.Type)).Inc()
}

// notifyOverdue enqueues the escalation email to reporting and
// escalation managers. Failures are logged; the alert cadence is never
// affected.
func (s *Scheduler) notifyOverdue(t *task.Task, st task.Subtask, minutes int, now time.Time) {
	if s.mailQueue == nil {
		return
	}
	receivers := task.Emails(append(append([]task.PersonRef(nil), t.ReportingManagers...), t.EscalationManagers...))
	if len(receivers) == 0 {
		return
	}

	body, err := mail.RenderOverdueNotice(mail.OverdueNoticeParams{
		TaskName:       t.Name,
		SubtaskName:    st.Name,
		ClientName:     t.Client,
		StartTime:      st.StartTime,
		OverdueMinutes: minutes,
		AlertedAt:      now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Errorw("Failed to render overdue notice", "task", t.ID, "subtask", st.ID, "error", err)
		return
	}

	notice := mail.Notice{
		TaskID:    t.ID,
		SubtaskID: st.ID,
		Receivers: receivers,
		Subject:   "Subtask overdue: " + st.Name + " (" + t.Client + ")",
		Body:      body,
	}
	if err := s.mailQueue.Enqueue(notice); err != nil {
		s.log.Errorw("Failed to enqueue overdue notice", "task", t.ID, "subtask", st.ID, "error", err)
	}
}

// Countdown returns the time remaining until the next alert for a task,
// or false when no timer exists. Display code polls this at one-second
// resolution.
func (s *Scheduler) Countdown(ctx context.Context, taskID string) (time.Duration, bool, error) {
	timer, err := s.timers.Get(ctx, taskID)
	if err != nil {
		return 0, false, err
	}
	if timer == nil {
		return 0, false, nil
	}
	return timer.Remaining(s.now()), true, nil
}

func (s *Scheduler) updateGauge(ctx context.Context) {
	timers, err := s.timers.List(ctx)
	if err != nil {
		return
	}
	metrics.EscalationTimersActive.Set(float64(len(timers)))
}

// Run ticks the scheduler until the context is cancelled. The tick
// period is deliberately shorter than the alert interval; Tick itself is
// cheap when nothing is due.
func (s *Scheduler) Run(ctx context.Context, tickEvery time.Duration) {
	if tickEvery <= 0 {
		tickEvery = time.Second
	}
	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()

	s.log.Infow("Escalation scheduler started", "interval", s.interval, "tickEvery", tickEvery)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Escalation scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
