package mail

import (
	"bytes"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// DelayedNoticeParams feeds the notification sent to reporting managers
// when a subtask is moved to delayed.
type DelayedNoticeParams struct {
	TaskName    string
	SubtaskName string
	ClientName  string
	ActorName   string
	DelayReason string
	DelayNotes  string
	DelayedAt   string
}

// OverdueNoticeParams feeds the escalation notification sent to reporting
// and escalation managers while a subtask remains overdue.
type OverdueNoticeParams struct {
	TaskName       string
	SubtaskName    string
	ClientName     string
	StartTime      string
	OverdueMinutes int
	AlertedAt      string
}

const delayedNoticeRaw = `<html>
<body>
<p>Subtask <b>{{.SubtaskName}}</b> of task <b>{{.TaskName}}</b> for client <b>{{.ClientName}}</b> has been marked as delayed by {{.ActorName | default "the system"}}.</p>
<p>Reason: <b>{{.DelayReason}}</b>{{if .DelayNotes}}<br/>Notes: {{.DelayNotes}}{{end}}</p>
<p>Delayed at: {{.DelayedAt}}</p>
</body>
</html>`

const overdueNoticeRaw = `<html>
<body>
<p>Subtask <b>{{.SubtaskName}}</b> of task <b>{{.TaskName}}</b> for client <b>{{.ClientName}}</b> is overdue.</p>
<p>Scheduled start: <b>{{.StartTime}}</b><br/>Overdue by: <b>{{.OverdueMinutes}} minute(s)</b></p>
<p>This alert repeats until the subtask leaves the overdue state. Alerted at: {{.AlertedAt}}</p>
</body>
</html>`

var (
	delayedNoticeTemplate = template.Must(template.New("delayedNotice").Funcs(sprig.HtmlFuncMap()).Parse(delayedNoticeRaw))
	overdueNoticeTemplate = template.Must(template.New("overdueNotice").Funcs(sprig.HtmlFuncMap()).Parse(overdueNoticeRaw))
)

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

// RenderDelayedNotice renders the delayed-subtask notification body.
func RenderDelayedNotice(p DelayedNoticeParams) (string, error) {
	return render(delayedNoticeTemplate, p)
}

// RenderOverdueNotice renders the overdue escalation notification body.
func RenderOverdueNotice(p OverdueNoticeParams) (string, error) {
	return render(overdueNoticeTemplate, p)
}
