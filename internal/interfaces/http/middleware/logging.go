// Package middleware holds gin middleware for the status server.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestRecorder receives one observation per request.
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, status int, d time.Duration)
}

// LoggingConfig configures RequestLogging.
type LoggingConfig struct {
	// SkipPaths are not logged. They are still recorded.
	SkipPaths     []string
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips probe and scrape paths.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestID assigns a request id when the client did not send one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogging logs each request and reports it to rec when set.
func RequestLogging(logger logging.Logger, cfg LoggingConfig, rec RequestRecorder) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if rec != nil {
			rec.RecordHTTPRequest(c.Request.Method, route, status, d)
		}
		if skip[c.Request.URL.Path] {
			return
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", d),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("remote_addr", c.ClientIP()),
			logging.String("request_id", c.GetString(RequestIDHeader)),
		}
		switch {
		case status >= 500:
			logger.Error("HTTP request completed with server error", fields...)
		case status >= 400:
			logger.Warn("HTTP request completed with client error", fields...)
		case cfg.SlowThreshold > 0 && d >= cfg.SlowThreshold:
			logger.Warn("HTTP request completed (slow)", fields...)
		default:
			logger.Info("HTTP request completed", fields...)
		}
	}
}

//Personal.AI order the ending
