package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/reminders"
	"github.com/mrlokans/librarian/internal/tasks"
)

// TasksController handles task queue management and on-demand reminder sweeps.
type TasksController struct {
	queue   TaskQueue
	sweeper ReminderSweeper
}

// NewTasksController creates a new TasksController. With a nil queue, sweeps
// run inside the request.
func NewTasksController(queue TaskQueue, sweeper ReminderSweeper) *TasksController {
	return &TasksController{queue: queue, sweeper: sweeper}
}

// TaskEnqueuedResponse is returned when a task was queued.
type TaskEnqueuedResponse struct {
	TaskID  string `json:"taskId"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SweepResponse is returned when a sweep ran synchronously.
type SweepResponse struct {
	Message string           `json:"message"`
	Result  reminders.Result `json:"result"`
}

type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SweepReminders handles POST /api/admin/reminders/sweep
func (tc *TasksController) SweepReminders(c *gin.Context) {
	if tc.queue != nil {
		task := tasks.SweepRemindersTask{RequestedBy: auth.GetUserID(c)}
		ids, err := tc.queue.Add(task).Ctx(c.Request.Context()).Save()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, TaskEnqueuedResponse{
			TaskID:  ids[0],
			Type:    task.Config().Name,
			Message: "task enqueued",
		})
		return
	}

	if tc.sweeper == nil {
		respondStatus(c, http.StatusServiceUnavailable, "SWEEP_UNAVAILABLE", "reminder sweeps are not configured")
		return
	}
	result, err := tc.sweeper.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SweepResponse{Message: "sweep completed", Result: result})
}

// GetTaskStatus handles GET /api/admin/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.queue == nil {
		respondStatus(c, http.StatusServiceUnavailable, "TASKS_DISABLED", "task queue is disabled")
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondStatus(c, http.StatusNotFound, CodeNotFound, "task not found")
		return
	}

	name, ok := taskStatusNames[status]
	if !ok {
		name = "unknown"
	}
	c.JSON(http.StatusOK, TaskStatusResponse{ID: taskID, Status: name})
}

var taskStatusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending: "pending",
	backlite.TaskStatusRunning: "running",
	backlite.TaskStatusSuccess: "success",
	backlite.TaskStatusFailure: "failure",
}
