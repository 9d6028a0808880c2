package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "nonsense", FormatJSON)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Configure(&buf, "DEBUG", FormatJSON)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	Configure(&buf, "info", FormatJSON)

	router := gin.New()
	router.Use(AccessLog())
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])

	log.Logger = zerolog.Nop()
}
