package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTask(t *testing.T, queue TaskStatusReader, id string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.GET("/api/tasks/:id", NewTasksController(queue).GetTaskStatus)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tasks/"+id, nil))
	return w
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	t.Run("running task", func(t *testing.T) {
		w := getTask(t, &staticQueue{status: backlite.TaskStatusRunning}, "01J9")
		require.Equal(t, http.StatusOK, w.Code)

		var resp TaskStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, TaskStatusResponse{ID: "01J9", Status: "running"}, resp)
	})

	t.Run("unknown task", func(t *testing.T) {
		w := getTask(t, &staticQueue{status: backlite.TaskStatusNotFound}, "missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "task not found")
	})

	t.Run("queue error is hidden", func(t *testing.T) {
		w := getTask(t, &staticQueue{err: errors.New("disk I/O error")}, "01J9")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk")
	})
}
