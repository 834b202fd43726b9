// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finopscloud/sla-engine/pkg/task"
)

// MemoryStore is an in-memory TaskStore for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	tasks   map[string]*task.Task
	reasons []task.OverdueRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*task.Task)}
}

// Put inserts or replaces a task.
func (s *MemoryStore) Put(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tasks[t.ID] = &cp
}

// FetchTasks returns a snapshot of all active tasks sorted by name.
func (s *MemoryStore) FetchTasks(_ context.Context, _ time.Time) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Active {
			cp := *t
			cp.Subtasks = append([]task.Subtask(nil), t.Subtasks...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetTask returns a copy of the task with the given ID.
func (s *MemoryStore) GetTask(_ context.Context, taskID string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	cp := *t
	cp.Subtasks = append([]task.Subtask(nil), t.Subtasks...)
	return &cp, nil
}

// UpdateSubtaskStatus applies the status update to the stored task.
func (s *MemoryStore) UpdateSubtaskStatus(_ context.Context, taskID, subtaskID string, update StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	st := t.Subtask(subtaskID)
	if st == nil {
		return fmt.Errorf("subtask %s not found in task %s", subtaskID, taskID)
	}

	st.Status = update.Status
	if update.StartedAt != nil {
		st.StartedAt = update.StartedAt
	}
	if update.CompletedAt != nil {
		st.CompletedAt = update.CompletedAt
	}
	if update.Status == task.StatusDelayed {
		st.DelayReason = update.DelayReason
		st.DelayNotes = update.DelayNotes
	} else {
		st.DelayReason = ""
		st.DelayNotes = ""
	}
	t.Status = update.TaskStatus
	return nil
}

// RecordOverdueReason appends the side record.
func (s *MemoryStore) RecordOverdueReason(_ context.Context, rec task.OverdueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, rec)
	return nil
}

// OverdueRecords returns a copy of the recorded reasons, oldest first.
func (s *MemoryStore) OverdueRecords() []task.OverdueRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]task.OverdueRecord(nil), s.reasons...)
}
