package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopscloud/sla-engine/pkg/apiresponses"
	"github.com/finopscloud/sla-engine/pkg/config"
	"github.com/finopscloud/sla-engine/pkg/escalation"
	"github.com/finopscloud/sla-engine/pkg/lifecycle"
	"github.com/finopscloud/sla-engine/pkg/schedule"
	"github.com/finopscloud/sla-engine/pkg/sla"
	"github.com/finopscloud/sla-engine/pkg/store"
	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// 2025-06-02 is a Monday, 10:00 UTC.
var apiNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	server *Server
	store  *store.MemoryStore
	timers *escalation.MemoryTimerStore
}

func newTestEnv(t *testing.T, tasks ...task.Task) *testEnv {
	t.Helper()
	fixedNow := func() time.Time { return apiNow }

	ms := store.NewMemoryStore()
	for _, tk := range tasks {
		ms.Put(tk)
	}

	manager := lifecycle.NewManager(ms, schedule.Evaluator{}, nil, nil, system.NewTestLogger())
	manager.SetClock(fixedNow)

	timers := escalation.NewMemoryTimerStore()
	esc := escalation.NewScheduler(timers, ms, sla.NewClassifier(0), nil, nil, 15*time.Minute, system.NewTestLogger())
	esc.SetClock(fixedNow)

	var cfg config.Config
	cfg.Defaults()
	srv := NewServer(system.NewTestZapLogger(), cfg, false)

	tc := NewTasksController(ms, manager, schedule.Evaluator{}, sla.NewClassifier(0), esc, system.NewTestLogger())
	tc.now = fixedNow
	require.NoError(t, srv.RegisterAll([]APIController{tc}))

	return &testEnv{server: srv, store: ms, timers: timers}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func apiTask(status task.Status) task.Task {
	return task.Task{
		ID:     "t1",
		Name:   "Daily close",
		Client: "Acme",
		Recurrence: task.Recurrence{
			Kind:          task.RecurDaily,
			EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Active: true,
		Status: task.AggregateStatus([]task.Subtask{{Status: status}}),
		Subtasks: []task.Subtask{
			{ID: "s1", Name: "Upload ledger", Position: 1, StartTime: "09:00", Status: status},
		},
	}
}

func TestListTasksAnnotatesSLA(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var views []TaskView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.True(t, views[0].ActiveToday)
	require.Len(t, views[0].Subtasks, 1)
	// 09:00 start, 10:00 now: one hour overdue.
	assert.Equal(t, sla.KindOverdue, views[0].Subtasks[0].SLAKind)
	assert.Equal(t, 60, views[0].Subtasks[0].SLAMinutes)
}

func TestGetTaskNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/tasks/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var apiErr apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestUpdateStatusHappyPath(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "in_progress",
		Actor:  ActorBody{ID: "u1", Name: "Uma"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, stored.Subtask("s1").Status)
}

func TestUpdateStatusUnknownSubtask(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/nope/status", StatusUpdateBody{
		Status: "in_progress",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestUpdateStatusUnknownTask(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodPost, "/api/tasks/ghost/subtasks/s1/status", StatusUpdateBody{
		Status: "in_progress",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordOverdueReasonUnknownSubtask(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusOverdue))

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/nope/overdueReason", OverdueReasonBody{
		Reason: "staff_shortage",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "paused",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusMissingDelayReason(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusInProgress))

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "delayed",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var apiErr apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "MISSING_REASON", apiErr.Code)
}

func TestUpdateStatusNotScheduledToday(t *testing.T) {
	tk := apiTask(task.StatusPending)
	tk.Recurrence = task.Recurrence{
		Kind:          task.RecurWeekly,
		Weekdays:      []time.Weekday{time.Friday},
		EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	env := newTestEnv(t, tk)

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "in_progress",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var apiErr apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_SCHEDULED_TODAY", apiErr.Code)
}

func TestUpdateStatusRejectsManualOverdue(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "overdue",
		Actor:  ActorBody{ID: "u1"},
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestOverdueExitFlow(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusOverdue))

	// The exit transition is rejected until a reason is recorded.
	w := env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "completed",
		Actor:  ActorBody{ID: "u1", Name: "Uma"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/overdueReason", OverdueReasonBody{
		Reason: "staff_shortage",
		Actor:  ActorBody{ID: "u1", Name: "Uma"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(t, http.MethodPost, "/api/tasks/t1/subtasks/s1/status", StatusUpdateBody{
		Status: "completed",
		Actor:  ActorBody{ID: "u1", Name: "Uma"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	recs := env.store.OverdueRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, task.OverdueStaffShortage, recs[0].Reason)
}

func TestEscalationCountdown(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusOverdue))
	require.NoError(t, env.timers.Put(context.Background(), escalation.Timer{
		TaskID:      "t1",
		NextAlertAt: apiNow.Add(5 * time.Minute),
		Interval:    15 * time.Minute,
	}))

	w := env.do(t, http.MethodGet, "/api/tasks/t1/escalation", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view EscalationView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.Active)
	assert.Equal(t, 300, view.RemainingSeconds)
}

func TestEscalationCountdownInactive(t *testing.T) {
	env := newTestEnv(t, apiTask(task.StatusPending))

	w := env.do(t, http.MethodGet, "/api/tasks/t1/escalation", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view EscalationView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.False(t, view.Active)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestVersionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "version")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sla_")
}
