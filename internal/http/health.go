package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	healthOK            = "ok"
	healthNotConfigured = "not configured"
	healthCheckTimeout  = 2 * time.Second
	// healthTaskID never exists; looking it up exercises the task database.
	healthTaskID = "health-check"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// Pinger reports store connectivity.
type Pinger interface {
	Ping() error
}

// HealthController reports the state of the library database and, when
// enabled, the task queue database.
type HealthController struct {
	db      Pinger
	queue   TaskQueue
	version string
	started time.Time
}

func NewHealthController(db Pinger, queue TaskQueue, version string) *HealthController {
	return &HealthController{
		db:      db,
		queue:   queue,
		version: version,
		started: time.Now(),
	}
}

// Status handles GET /health. Any failing check turns the response into a 503.
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{
		"database": h.checkDatabase(),
		"tasks":    h.checkTasks(ctx),
	}

	status, code := "healthy", http.StatusOK
	for _, result := range checks {
		if result != healthOK && result != healthNotConfigured {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}

	c.IndentedJSON(code, HealthResponse{
		Status:  status,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) checkDatabase() string {
	if h.db == nil {
		return healthNotConfigured
	}
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error()
	}
	return healthOK
}

func (h *HealthController) checkTasks(ctx context.Context) string {
	if h.queue == nil {
		return healthNotConfigured
	}
	if _, err := h.queue.Status(ctx, healthTaskID); err != nil {
		return "error: " + err.Error()
	}
	return healthOK
}

// Ping handles GET /ping.
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
