package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/periphery/internal/monitoring"
	"github.com/GriffinCanCode/periphery/internal/persistence"
	"github.com/GriffinCanCode/periphery/internal/render"
	"github.com/GriffinCanCode/periphery/internal/session"
)

// Version is reported by the root and health endpoints.
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions  *session.Manager
	scheduler *render.Scheduler
	store     *persistence.Store
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	started   time.Time
}

// NewHandlers creates a new handler set. store and metrics may be nil when
// persistence or monitoring is disabled.
func NewHandlers(
	sessions *session.Manager,
	scheduler *render.Scheduler,
	store *persistence.Store,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions:  sessions,
		scheduler: scheduler,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		started:   time.Now(),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "periphery",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        Version,
		"uptime_seconds": time.Since(h.started).Seconds(),
		"sessions":       h.sessions.Len(),
		"peripherals":    h.sessions.Peripherals().Stats(),
		"apis":           h.sessions.APIs().Stats(),
		"persistence":    gin.H{"enabled": h.store != nil},
	})
}

// Capabilities lists every capability a script can reach, with its method
// table in call order.
func (h *Handlers) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"peripherals": h.sessions.Peripherals().Definitions(),
		"apis":        h.sessions.APIs().Definitions(),
	})
}

// Stats returns the running metric totals as JSON.
func (h *Handlers) Stats(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now(),
		"metrics":   h.metrics.Snapshot(),
		"sessions":  h.sessions.Len(),
	})
}
