package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/apiresponses"
	"github.com/finopscloud/sla-engine/pkg/escalation"
	"github.com/finopscloud/sla-engine/pkg/lifecycle"
	"github.com/finopscloud/sla-engine/pkg/schedule"
	"github.com/finopscloud/sla-engine/pkg/sla"
	"github.com/finopscloud/sla-engine/pkg/store"
	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// TasksController serves the task snapshot with SLA annotations and the
// status mutation endpoints. All writes go through the lifecycle
// manager; the controller never touches the store's write path directly.
type TasksController struct {
	store      store.TaskStore
	manager    *lifecycle.Manager
	sched      schedule.Evaluator
	classifier sla.Classifier
	escalation *escalation.Scheduler
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewTasksController(ts store.TaskStore, manager *lifecycle.Manager, sched schedule.Evaluator, classifier sla.Classifier, esc *escalation.Scheduler, log *zap.SugaredLogger) *TasksController {
	if log == nil {
		log = zap.S()
	}
	return &TasksController{
		store:      ts,
		manager:    manager,
		sched:      sched,
		classifier: classifier,
		escalation: esc,
		log:        log.Named("api.tasks"),
		now:        time.Now,
	}
}

func (tc *TasksController) BasePath() string {
	return "tasks"
}

func (tc *TasksController) Handlers() []gin.HandlerFunc {
	return nil
}

func (tc *TasksController) Register(rg *gin.RouterGroup) error {
	rg.GET("", tc.listTasks)
	rg.GET("/:taskID", tc.getTask)
	rg.GET("/:taskID/escalation", tc.getEscalation)
	rg.POST("/:taskID/subtasks/:subtaskID/status", tc.updateStatus)
	rg.POST("/:taskID/subtasks/:subtaskID/overdueReason", tc.recordOverdueReason)
	return nil
}

// SubtaskView annotates a subtask with its current SLA classification
// and the display helper.
type SubtaskView struct {
	task.Subtask
	SLAKind        sla.Kind `json:"slaKind"`
	SLAMinutes     int      `json:"slaMinutes"`
	TimeSinceStart string   `json:"timeSinceStart,omitempty"`
}

// TaskView is a task plus per-subtask annotations and the active-day
// flag for the current date.
type TaskView struct {
	task.Task
	ActiveToday bool          `json:"activeToday"`
	Subtasks    []SubtaskView `json:"subtasks"`
}

func (tc *TasksController) view(t *task.Task, now time.Time) TaskView {
	v := TaskView{
		Task:        *t,
		ActiveToday: tc.sched.IsActiveOn(t, now),
	}
	for _, st := range t.Subtasks {
		c := tc.classifier.Classify(st.StartTime, st.Status, now)
		sv := SubtaskView{
			Subtask:    st,
			SLAKind:    c.Kind,
			SLAMinutes: c.OffsetMinutes,
		}
		if st.StartTime != "" && st.Status != task.StatusCompleted {
			sv.TimeSinceStart = tc.classifier.TimeSinceStart(st.StartTime, now)
		}
		v.Subtasks = append(v.Subtasks, sv)
	}
	v.Task.Subtasks = nil
	return v
}

func (tc *TasksController) listTasks(c *gin.Context) {
	now := tc.now()
	tasks, err := tc.store.FetchTasks(c.Request.Context(), now)
	if err != nil {
		apiresponses.RespondInternalError(c, "fetch tasks", err, system.GetReqLogger(c, tc.log))
		return
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, tc.view(&tasks[i], now))
	}
	apiresponses.RespondOK(c, views)
}

func (tc *TasksController) getTask(c *gin.Context) {
	taskID := c.Param("taskID")
	t, err := tc.store.GetTask(c.Request.Context(), taskID)
	if err != nil {
		apiresponses.RespondNotFound(c, "task", taskID)
		return
	}
	apiresponses.RespondOK(c, tc.view(t, tc.now()))
}

// EscalationView is the countdown surface polled by display code.
type EscalationView struct {
	Active           bool       `json:"active"`
	NextAlertAt      *time.Time `json:"nextAlertAt,omitempty"`
	RemainingSeconds int        `json:"remainingSeconds"`
}

func (tc *TasksController) getEscalation(c *gin.Context) {
	taskID := c.Param("taskID")
	remaining, ok, err := tc.escalation.Countdown(c.Request.Context(), taskID)
	if err != nil {
		apiresponses.RespondInternalError(c, "read escalation timer", err, system.GetReqLogger(c, tc.log))
		return
	}
	if !ok {
		apiresponses.RespondOK(c, EscalationView{Active: false})
		return
	}
	next := tc.now().Add(remaining)
	apiresponses.RespondOK(c, EscalationView{
		Active:           true,
		NextAlertAt:      &next,
		RemainingSeconds: int(remaining / time.Second),
	})
}

// ActorBody identifies the person performing a mutation.
type ActorBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a ActorBody) ref() task.PersonRef {
	return task.PersonRef{ID: a.ID, Name: a.Name, Email: a.Email}
}

// StatusUpdateBody is the request payload for a status transition.
type StatusUpdateBody struct {
	Status      string    `json:"status" binding:"required"`
	Actor       ActorBody `json:"actor" binding:"required"`
	DelayReason string    `json:"delayReason"`
	DelayNotes  string    `json:"delayNotes"`
}

func (tc *TasksController) updateStatus(c *gin.Context) {
	taskID := c.Param("taskID")
	subtaskID := c.Param("subtaskID")

	var body StatusUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid request body", err.Error())
		return
	}

	status, err := task.ParseStatus(body.Status)
	if err != nil {
		apiresponses.RespondBadRequest(c, err.Error())
		return
	}

	t, err := tc.manager.Transition(c.Request.Context(), lifecycle.TransitionRequest{
		TaskID:      taskID,
		SubtaskID:   subtaskID,
		To:          status,
		Actor:       body.Actor.ref(),
		DelayReason: task.DelayReason(body.DelayReason),
		DelayNotes:  body.DelayNotes,
	})
	if err != nil {
		tc.respondTransitionError(c, err)
		return
	}
	apiresponses.RespondOK(c, tc.view(t, tc.now()))
}

// OverdueReasonBody is the request payload recorded ahead of an
// overdue-exit transition.
type OverdueReasonBody struct {
	Reason string    `json:"reason" binding:"required"`
	Notes  string    `json:"notes"`
	Actor  ActorBody `json:"actor" binding:"required"`
}

func (tc *TasksController) recordOverdueReason(c *gin.Context) {
	taskID := c.Param("taskID")
	subtaskID := c.Param("subtaskID")

	var body OverdueReasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid request body", err.Error())
		return
	}

	err := tc.manager.RecordOverdueReason(c.Request.Context(), taskID, subtaskID,
		task.OverdueReason(body.Reason), body.Notes, body.Actor.ref())
	switch {
	case err == nil:
	case errors.Is(err, store.ErrTaskNotFound):
		apiresponses.RespondNotFound(c, "task", taskID)
		return
	case errors.Is(err, lifecycle.ErrUnknownSubtask):
		apiresponses.RespondNotFound(c, "subtask", subtaskID)
		return
	default:
		apiresponses.RespondBadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": true})
}

// respondTransitionError maps the state machine's typed rejections onto
// the error codes the UI prompts on.
func (tc *TasksController) respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		apiresponses.RespondNotFound(c, "task", c.Param("taskID"))
	case errors.Is(err, lifecycle.ErrUnknownSubtask):
		apiresponses.RespondNotFound(c, "subtask", c.Param("subtaskID"))
	case lifecycle.IsNotScheduledToday(err):
		apiresponses.RespondNotScheduledToday(c, err.Error())
	case lifecycle.IsMissingReason(err):
		apiresponses.RespondMissingReason(c, err.Error())
	case lifecycle.IsTransitionConflict(err):
		apiresponses.RespondConflict(c, err.Error())
	case errors.Is(err, lifecycle.ErrNotPending), errors.Is(err, lifecycle.ErrOverdueNotAllowed):
		apiresponses.RespondConflict(c, err.Error())
	default:
		apiresponses.RespondInternalError(c, "apply status transition", err, system.GetReqLogger(c, tc.log))
	}
}
