/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSender simulates a mail sender with configurable behavior
type MockSender struct {
	mu            sync.Mutex
	successAfter  int
	attempts      int
	lastReceivers []string
	lastSubject   string
	host          string
}

func (m *MockSender) Send(receivers []string, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	m.lastReceivers = receivers
	m.lastSubject = subject

	if m.attempts > m.successAfter {
		return nil
	}
	return errors.New("simulated send failure")
}

func (m *MockSender) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *MockSender) Last() ([]string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReceivers, m.lastSubject
}

func (m *MockSender) GetHost() string {
	return m.host
}

func (m *MockSender) GetPort() int {
	return 25
}

func TestQueue_Enqueue(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	sender := &MockSender{successAfter: 0, host: "test.example.com"}
	queue := NewQueue(sender, sugar, 3, 100, 10)
	queue.Start()
	defer func() {
		if err := queue.Stop(context.Background()); err != nil {
			t.Errorf("failed to stop queue: %v", err)
		}
	}()

	err := queue.Enqueue(Notice{
		TaskID:    "t1",
		SubtaskID: "s1",
		Receivers: []string{"manager@corp.example"},
		Subject:   "Subtask delayed",
		Body:      "Body",
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return sender.Attempts() == 1
	}, 2*time.Second, 20*time.Millisecond)
	receivers, subject := sender.Last()
	assert.Equal(t, "Subtask delayed", subject)
	assert.Equal(t, []string{"manager@corp.example"}, receivers)
}

func TestQueue_RetriesUntilSuccess(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	// First send fails, second succeeds.
	sender := &MockSender{successAfter: 1, host: "test.example.com"}
	queue := NewQueue(sender, sugar, 3, 50, 10)
	queue.Start()
	defer func() { _ = queue.Stop(context.Background()) }()

	require.NoError(t, queue.Enqueue(Notice{
		TaskID:    "t1",
		SubtaskID: "s1",
		Receivers: []string{"esc@corp.example"},
		Subject:   "Overdue",
		Body:      "Body",
	}))

	assert.Eventually(t, func() bool {
		return sender.Attempts() >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueue_AssignsNoticeID(t *testing.T) {
	sender := &MockSender{host: "test.example.com"}
	queue := NewQueue(sender, zap.NewNop().Sugar(), 3, 100, 10)
	defer func() { _ = queue.Stop(context.Background()) }()

	require.NoError(t, queue.Enqueue(Notice{
		TaskID:    "t1",
		SubtaskID: "s1",
		Receivers: []string{"a@b.example"},
		Subject:   "Subject",
	}))

	n := <-queue.notices
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "t1", n.TaskID)
	assert.Equal(t, "s1", n.SubtaskID)
}

func TestQueue_EmptyReceiversRejected(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	sender := &MockSender{host: "test.example.com"}
	queue := NewQueue(sender, sugar, 3, 100, 10)

	err := queue.Enqueue(Notice{TaskID: "t1", SubtaskID: "s1", Subject: "Subject"})
	assert.Error(t, err)
}

func TestQueue_EnqueueAfterStop(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	sender := &MockSender{host: "test.example.com"}
	queue := NewQueue(sender, sugar, 3, 100, 10)
	queue.Start()
	require.NoError(t, queue.Stop(context.Background()))

	err := queue.Enqueue(Notice{Receivers: []string{"a@b.example"}, Subject: "Subject"})
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	queue := NewQueue(&MockSender{host: "h"}, zap.NewNop().Sugar(), 5, 10000, 10)

	assert.Equal(t, 10*time.Second, queue.backoff(1))
	assert.Equal(t, 20*time.Second, queue.backoff(2))
	assert.Equal(t, 40*time.Second, queue.backoff(3))
	// Capped at 30 minutes.
	assert.Equal(t, 30*time.Minute, queue.backoff(12))
}
