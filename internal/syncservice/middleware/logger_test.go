package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequestLine", func(t *testing.T) {
		var logBuffer bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&logBuffer, nil))

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Logger(log))
		router.GET("/sync", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		deliveryID := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/sync?force=true", nil)
		req.Header.Set("User-Agent", "bridge-webhooks/1.0")
		req.Header.Set(CorrelationIDHeader, deliveryID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"msg":"Request handled"`)
		assert.Contains(t, logOutput, `"method":"GET"`)
		assert.Contains(t, logOutput, `"path":"/sync?force=true"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"latency":`)
		assert.Contains(t, logOutput, `"user_agent":"bridge-webhooks/1.0"`)
		assert.Contains(t, logOutput, `"correlation_id":"`+deliveryID+`"`)
	})

	t.Run("TagsGeneratedCorrelationID", func(t *testing.T) {
		var logBuffer bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&logBuffer, nil))

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Logger(log))
		router.POST("/payments", func(c *gin.Context) {
			c.String(http.StatusCreated, "Created")
		})

		req, _ := http.NewRequest(http.MethodPost, "/payments", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"status":201`)
		assert.Contains(t, logOutput, `"correlation_id":`)
	})
}
