package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// StatusProvider reports the state of a training run.
type StatusProvider interface {
	Status() training.Status
}

type providerBox struct{ p StatusProvider }

// StatusHandler serves the current training status. The provider may be
// attached after the server has started.
type StatusHandler struct {
	provider atomic.Pointer[providerBox]
}

// NewStatusHandler creates a StatusHandler, optionally bound to p.
func NewStatusHandler(p StatusProvider) *StatusHandler {
	h := &StatusHandler{}
	if p != nil {
		h.Attach(p)
	}
	return h
}

// Attach swaps the provider.
func (h *StatusHandler) Attach(p StatusProvider) {
	h.provider.Store(&providerBox{p: p})
}

// Register mounts GET /status on r.
func (h *StatusHandler) Register(r gin.IRouter) {
	r.GET("/status", h.Get)
}

// Get returns the provider's status, or 503 when no run is attached.
func (h *StatusHandler) Get(c *gin.Context) {
	box := h.provider.Load()
	if box == nil || box.p == nil {
		writeAppError(c, errors.New(errors.ErrCodeServiceUnavailable, "no training run attached"))
		return
	}
	c.JSON(http.StatusOK, box.p.Status())
}

//Personal.AI order the ending
