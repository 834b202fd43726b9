// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"time"

	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/mail"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// MailNotifier delivers delay notices to reporting managers through the
// async mail queue.
type MailNotifier struct {
	queue *mail.Queue
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewMailNotifier wires a MailNotifier around a started queue.
func NewMailNotifier(queue *mail.Queue, log *zap.SugaredLogger) *MailNotifier {
	if log == nil {
		log = zap.S()
	}
	return &MailNotifier{
		queue: queue,
		log:   log.Named("notifier"),
		now:   time.Now,
	}
}

// NotifyDelayed renders and enqueues the reporting-manager notice.
// Rendering or enqueue failures are logged; the transition has already
// been applied at this point and must not be rolled back.
func (n *MailNotifier) NotifyDelayed(t *task.Task, st *task.Subtask, actor task.PersonRef) {
	receivers := task.Emails(t.ReportingManagers)
	if len(receivers) == 0 {
		n.log.Debugw("No reporting managers with email, skipping delay notice",
			"task", t.ID,
			"subtask", st.ID)
		return
	}

	body, err := mail.RenderDelayedNotice(mail.DelayedNoticeParams{
		TaskName:    t.Name,
		SubtaskName: st.Name,
		ClientName:  t.Client,
		ActorName:   actor.Display(),
		DelayReason: string(st.DelayReason),
		DelayNotes:  st.DelayNotes,
		DelayedAt:   n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		n.log.Errorw("Failed to render delay notice",
			"task", t.ID,
			"subtask", st.ID,
			"error", err)
		return
	}

	notice := mail.Notice{
		TaskID:    t.ID,
		SubtaskID: st.ID,
		Receivers: receivers,
		Subject:   "Subtask delayed: " + st.Name + " (" + t.Client + ")",
		Body:      body,
	}
	if err := n.queue.Enqueue(notice); err != nil {
		n.log.Errorw("Failed to enqueue delay notice",
			"task", t.ID,
			"subtask", st.ID,
			"error", err)
	}
}
