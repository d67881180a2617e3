package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketscan/internal/repositories"
)

// HealthHandlers exposes liveness and readiness probes.
type HealthHandlers struct {
	db repositories.Pinger
}

func NewHealthHandlers(db repositories.Pinger) *HealthHandlers {
	return &HealthHandlers{db: db}
}

func (h *HealthHandlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandlers) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ready"})
}
