package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CandleQuery/internal/domain/repository"
	"CandleQuery/internal/service/monitor"
	xlogger "CandleQuery/pkg/logger"
)

// SystemEchoHandler exposes the observability surface: liveness, readiness
// against the object store, and in-process query statistics.
type SystemEchoHandler struct {
	logger  *xlogger.Logger
	store   repository.ObjectStore
	monitor *monitor.PerformanceMonitor
}

func NewSystemEchoHandler(logger *xlogger.Logger, store repository.ObjectStore, mon *monitor.PerformanceMonitor) *SystemEchoHandler {
	return &SystemEchoHandler{logger: logger, store: store, monitor: mon}
}

func (h *SystemEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/health/ready", h.Ready)
	e.GET("/stats", h.Stats)
}

// Health reports process liveness.
func (h *SystemEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready probes the object store with a cheap bucket listing.
func (h *SystemEchoHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := h.store.ListObjects(ctx, "metadata/"); err != nil {
		h.logger.Error("readiness probe failed", xlogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ready",
		"bucket": h.store.Bucket(),
	})
}

// Stats returns the in-process query and cache summary.
func (h *SystemEchoHandler) Stats(c echo.Context) error {
	if h.monitor == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{})
	}
	return c.JSON(http.StatusOK, h.monitor.GetSummary())
}
