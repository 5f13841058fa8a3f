package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/gallery/internal/tasks"
)

const taskLookupTimeout = 5 * time.Second

// TaskStatusResponse is the queue-side view of an enqueued task. Import
// progress lives on the import record; this only says whether the queue
// still holds the task.
type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type TasksController struct {
	queue TaskStatusReader
}

func NewTasksController(queue TaskStatusReader) *TasksController {
	return &TasksController{queue: queue}
}

// GetTaskStatus handles GET /api/tasks/:id. Task ids are the task_id
// field of an import.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), taskLookupTimeout)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, TaskStatusResponse{ID: taskID, Status: tasks.StatusString(status)})
}
