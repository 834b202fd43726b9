// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"sync"
	"time"
)

// Timer is the durable escalation record for one task. It exists exactly
// while the task has at least one overdue subtask and survives process
// restarts so a brief restart does not reset the escalation clock.
type Timer struct {
	TaskID      string        `json:"taskID"`
	NextAlertAt time.Time     `json:"nextAlertAt"`
	Interval    time.Duration `json:"interval"`
}

// Due reports whether the timer should fire at the given instant.
func (t Timer) Due(now time.Time) bool {
	return !now.Before(t.NextAlertAt)
}

// Remaining returns the time left until the next alert, floored at zero.
func (t Timer) Remaining(now time.Time) time.Duration {
	d := t.NextAlertAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// TimerStore persists escalation timers keyed by task ID. Get returns
// nil without error when no timer exists.
type TimerStore interface {
	Get(ctx context.Context, taskID string) (*Timer, error)
	Put(ctx context.Context, t Timer) error
	Delete(ctx context.Context, taskID string) error
	List(ctx context.Context) ([]Timer, error)
}

// MemoryTimerStore is a map-backed TimerStore for development and tests.
type MemoryTimerStore struct {
	mu     sync.RWMutex
	timers map[string]Timer
}

func NewMemoryTimerStore() *MemoryTimerStore {
	return &MemoryTimerStore{timers: make(map[string]Timer)}
}

func (s *MemoryTimerStore) Get(_ context.Context, taskID string) (*Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timers[taskID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryTimerStore) Put(_ context.Context, t Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[t.TaskID] = t
	return nil
}

func (s *MemoryTimerStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, taskID)
	return nil
}

func (s *MemoryTimerStore) List(_ context.Context) ([]Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Timer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t)
	}
	return out, nil
}
