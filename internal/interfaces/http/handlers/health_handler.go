package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
func CheckFunc(name string, fn func(ctx context.Context) error) HealthChecker {
	return checkFunc{name: name, fn: fn}
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (f checkFunc) Name() string                    { return f.name }
func (f checkFunc) Check(ctx context.Context) error { return f.fn(ctx) }

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// LivenessResponse is the body of GET /healthz.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck is the health of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Register mounts the probes on r.
func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

// Liveness always returns 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness returns 503 if any dependency is unhealthy.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if len(h.checkers) == 0 {
		c.JSON(http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	components := h.checkAll(ctx)
	resp := ReadinessResponse{Status: "ready", Components: components}
	for _, cc := range components {
		if cc.Status != "healthy" {
			resp.Status = "not_ready"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(hc HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := hc.Check(ctx)
			cc := ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}
			mu.Lock()
			results[hc.Name()] = cc
			mu.Unlock()
		}(checker)
	}
	wg.Wait()
	return results
}

//Personal.AI order the ending
