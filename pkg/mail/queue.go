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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/metrics"
)

// retryPoll is how often the worker re-checks notices waiting on backoff.
const retryPoll = 50 * time.Millisecond

// maxBackoff caps the retry backoff at 30 minutes.
const maxBackoff = 30 * time.Minute

// Notice is a single manager notification queued for delivery. TaskID and
// SubtaskID tie retry and drop log lines back to the subtask that caused
// the notice.
type Notice struct {
	ID        string
	TaskID    string
	SubtaskID string
	Receivers []string
	Subject   string
	Body      string

	attempt int
	nextTry time.Time
	sent    bool
}

// Queue delivers notices asynchronously with exponential-backoff retries.
type Queue struct {
	sender       Sender
	notices      chan *Notice
	log          *zap.SugaredLogger
	maxRetries   int
	firstBackoff time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	capacity     int
}

// NewQueue creates a mail queue. Zero or negative settings fall back to
// five retries starting at a ten-second backoff and a 1000-notice buffer.
func NewQueue(sender Sender, log *zap.SugaredLogger, maxRetries, initialBackoffMs, maxQueueSize int) *Queue {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if initialBackoffMs <= 0 {
		initialBackoffMs = 10000
	}
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}

	log.Infow("Initializing mail queue",
		"maxRetries", maxRetries,
		"initialBackoffMs", initialBackoffMs,
		"capacity", maxQueueSize)

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		sender:       sender,
		notices:      make(chan *Notice, maxQueueSize),
		log:          log,
		maxRetries:   maxRetries,
		firstBackoff: time.Duration(initialBackoffMs) * time.Millisecond,
		capacity:     maxQueueSize,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the delivery worker.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.run()
	q.log.Info("Mail queue worker started")
}

// Enqueue accepts a notice for delivery. An empty ID is filled in. The
// call never blocks; a full or stopping queue drops the notice with an
// error.
func (q *Queue) Enqueue(n Notice) error {
	if len(n.Receivers) == 0 {
		q.log.Errorw("Cannot enqueue notice without receivers",
			"task", n.TaskID,
			"subtask", n.SubtaskID,
			"subject", n.Subject)
		metrics.MailQueueDropped.WithLabelValues(q.sender.GetHost()).Inc()
		return fmt.Errorf("notice has no receivers")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.nextTry = time.Now()

	select {
	case <-q.ctx.Done():
		metrics.MailQueueDropped.WithLabelValues(q.sender.GetHost()).Inc()
		q.log.Errorw("Cannot enqueue, queue is shutting down",
			"id", n.ID, "task", n.TaskID, "subtask", n.SubtaskID)
		return fmt.Errorf("queue is shutting down")
	default:
	}

	select {
	case q.notices <- &n:
		metrics.MailQueued.WithLabelValues(q.sender.GetHost()).Inc()
		q.log.Debugw("Notice queued",
			"id", n.ID,
			"task", n.TaskID,
			"subtask", n.SubtaskID,
			"receivers", len(n.Receivers))
		return nil
	case <-q.ctx.Done():
		metrics.MailQueueDropped.WithLabelValues(q.sender.GetHost()).Inc()
		q.log.Errorw("Cannot enqueue, queue is shutting down",
			"id", n.ID, "task", n.TaskID, "subtask", n.SubtaskID)
		return fmt.Errorf("queue is shutting down")
	default:
		metrics.MailQueueDropped.WithLabelValues(q.sender.GetHost()).Inc()
		q.log.Errorw("Mail queue full, dropping notice",
			"id", n.ID,
			"task", n.TaskID,
			"subtask", n.SubtaskID,
			"capacity", q.capacity)
		return fmt.Errorf("mail queue is full (capacity: %d)", q.capacity)
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorw("panic in mail queue worker recovered", "panic", r)
			q.wg.Add(1)
			go q.run()
		}
	}()

	var waiting []*Notice
	ticker := time.NewTicker(retryPoll)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.log.Info("Mail queue worker shutting down")
			q.drain(waiting)
			return

		case n := <-q.notices:
			if n == nil {
				continue
			}
			q.deliver(n)
			if !n.sent && n.attempt < q.maxRetries {
				waiting = append(waiting, n)
			}

		case <-ticker.C:
			now := time.Now()
			kept := waiting[:0]
			for _, n := range waiting {
				if !n.sent && now.After(n.nextTry) {
					q.deliver(n)
				}
				if !n.sent && n.attempt < q.maxRetries {
					kept = append(kept, n)
				}
			}
			waiting = kept
		}
	}
}

// deliver makes one send attempt and schedules the next retry on failure.
func (q *Queue) deliver(n *Notice) {
	n.attempt++

	err := q.sender.Send(n.Receivers, n.Subject, n.Body)
	if err == nil {
		n.sent = true
		metrics.MailSent.WithLabelValues(q.sender.GetHost()).Inc()
		q.log.Infow("Notice sent",
			"id", n.ID,
			"task", n.TaskID,
			"subtask", n.SubtaskID,
			"attempt", n.attempt,
			"receivers", len(n.Receivers))
		return
	}

	if n.attempt < q.maxRetries {
		wait := q.backoff(n.attempt)
		n.nextTry = time.Now().Add(wait)
		metrics.MailRetryScheduled.WithLabelValues(q.sender.GetHost()).Inc()
		q.log.Warnw("Notice send failed, retrying",
			"id", n.ID,
			"task", n.TaskID,
			"subtask", n.SubtaskID,
			"attempt", n.attempt,
			"retryIn", wait,
			"error", err)
		return
	}

	metrics.MailFailed.WithLabelValues(q.sender.GetHost()).Inc()
	q.log.Errorw("Notice send failed after all retries",
		"id", n.ID,
		"task", n.TaskID,
		"subtask", n.SubtaskID,
		"attempts", n.attempt,
		"receivers", n.Receivers,
		"error", err)
}

// drain gives notices still waiting on backoff one final attempt during
// shutdown.
func (q *Queue) drain(waiting []*Notice) {
	q.log.Infow("Draining pending notices on shutdown", "count", len(waiting))
	for _, n := range waiting {
		if n.attempt < q.maxRetries {
			q.deliver(n)
		}
	}
}

// backoff doubles per attempt from the configured start: 10s, 20s, 40s...
// capped at maxBackoff.
func (q *Queue) backoff(attempt int) time.Duration {
	wait := q.firstBackoff << (attempt - 1)
	if wait > maxBackoff || wait <= 0 {
		wait = maxBackoff
	}
	return wait
}

// Stop cancels the worker and waits for it within the context deadline.
func (q *Queue) Stop(ctx context.Context) error {
	q.log.Info("Stopping mail queue")
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Mail queue stopped")
		return nil
	case <-ctx.Done():
		q.log.Warn("Mail queue shutdown timeout, some notices may be unsent")
		return ctx.Err()
	}
}

// Length returns the number of notices buffered in the channel.
func (q *Queue) Length() int {
	return len(q.notices)
}
