// Package http serves training status, probes and Prometheus metrics.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-JTNN/internal/interfaces/http/middleware"
)

// RouterConfig holds the handlers mounted by NewRouter. Nil entries are skipped.
type RouterConfig struct {
	HealthHandler *handlers.HealthHandler
	StatusHandler *handlers.StatusHandler
	Metrics       http.Handler
	Recorder      middleware.RequestRecorder
	Logger        logging.Logger
	Logging       middleware.LoggingConfig
}

// NewRouter builds the route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(log, cfg.Logging, cfg.Recorder))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.Register(r)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	v1 := r.Group("/v1")
	if cfg.StatusHandler != nil {
		cfg.StatusHandler.Register(v1)
	}
	return r
}

//Personal.AI order the ending
