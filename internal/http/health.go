package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	checkOK            = "ok"
	checkNotConfigured = "not configured"
	healthProbeTimeout = 2 * time.Second

	// Looked up on every health check; backlite answers not-found
	// without an error as long as its database is reachable.
	queueProbeTaskID = "health-probe"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports on the database and the import queue. Only the
// database decides between 200 and 503: with a broken queue the API still
// answers, but imports stay pending, so the status is "degraded".
type HealthController struct {
	db      Pinger
	queue   TaskStatusReader
	version string
}

func NewHealthController(db Pinger, queue TaskStatusReader, version string) *HealthController {
	return &HealthController{db: db, queue: queue, version: version}
}

func (h *HealthController) Status(c *gin.Context) {
	dbCheck, dbOK := h.checkDatabase()
	queueCheck, queueOK := h.checkQueue(c.Request.Context())

	resp := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
		Checks: map[string]string{
			"database":     dbCheck,
			"import_queue": queueCheck,
		},
	}

	code := http.StatusOK
	switch {
	case !dbOK:
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case !queueOK:
		resp.Status = "degraded"
	}
	c.JSON(code, resp)
}

func (h *HealthController) checkDatabase() (string, bool) {
	if h.db == nil {
		return checkNotConfigured, true
	}
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error(), false
	}
	return checkOK, true
}

// checkQueue treats a disabled queue as healthy: imports then wait for an
// operator to enqueue them from the CLI.
func (h *HealthController) checkQueue(ctx context.Context) (string, bool) {
	if h.queue == nil {
		return "disabled", true
	}
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	if _, err := h.queue.Status(ctx, queueProbeTaskID); err != nil {
		return "error: " + err.Error(), false
	}
	return checkOK, true
}

// Ping is a liveness probe that touches nothing.
func Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
