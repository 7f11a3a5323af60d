package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/memsweep/memsweep/internal/api/ws"
	"github.com/memsweep/memsweep/internal/infrastructure/logging"
	"github.com/memsweep/memsweep/internal/sysinfo"
	"github.com/memsweep/memsweep/internal/trim"
)

// Handlers serves the REST surface consumed by UI clients.
type Handlers struct {
	runner *trim.Runner
	hub    *ws.Hub
	stats  *sysinfo.Provider
	logger *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(runner *trim.Runner, hub *ws.Hub, stats *sysinfo.Provider, logger *logging.Logger) *Handlers {
	return &Handlers{runner: runner, hub: hub, stats: stats, logger: logger}
}

// StartTrim begins a trim run. The completion is delivered over the
// notification socket; this endpoint only acknowledges the start.
func (h *Handlers) StartTrim(c *gin.Context) {
	runID, ch, err := h.runner.Start()
	if errors.Is(err, trim.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "a trim run is already in flight",
		})
		return
	}

	go h.hub.WatchRun(ch)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"run_id":  runID,
	})
}

// TrimStatus reports whether a run is in flight.
func (h *Handlers) TrimStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"running": h.runner.Running(),
	})
}

// Stats returns current system memory and CPU utilization.
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.stats.Sample()
	if err != nil {
		h.logger.Warn("stats sample failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// Health is the liveness endpoint.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": h.runner.Running(),
	})
}
