package http

import (
	"context"
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

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error {
	return p.err
}

type stubQueue struct {
	TaskQueue
	err error
}

func (q stubQueue) Status(context.Context, string) (backlite.TaskStatus, error) {
	return backlite.TaskStatusNotFound, q.err
}

func TestHealthController_Status(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		queue      TaskQueue
		wantCode   int
		wantStatus string
		wantDB     string
		wantTasks  string
	}{
		{name: "healthy with database only", db: stubPinger{}, wantCode: http.StatusOK, wantStatus: "healthy", wantDB: "ok", wantTasks: "not configured"},
		{name: "healthy with task queue", db: stubPinger{}, queue: stubQueue{}, wantCode: http.StatusOK, wantStatus: "healthy", wantDB: "ok", wantTasks: "ok"},
		{name: "reports missing database", wantCode: http.StatusOK, wantStatus: "healthy", wantDB: "not configured", wantTasks: "not configured"},
		{name: "unhealthy when ping fails", db: stubPinger{err: errors.New("database is closed")}, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy", wantDB: "error: database is closed", wantTasks: "not configured"},
		{name: "unhealthy when task database fails", db: stubPinger{}, queue: stubQueue{err: errors.New("disk I/O error")}, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy", wantDB: "ok", wantTasks: "error: disk I/O error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := NewHealthController(tt.db, tt.queue, "1.0.0")

			router := gin.New()
			router.GET("/health", controller.Status)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, "1.0.0", response.Version)
			assert.Equal(t, tt.wantDB, response.Checks["database"])
			assert.Equal(t, tt.wantTasks, response.Checks["tasks"])
			assert.NotEmpty(t, response.Uptime)
		})
	}
}

func TestHealthController_WithDatabase(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, w).Checks["database"])

	w = s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestRouter_CORSAndSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/books", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
