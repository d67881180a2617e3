package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"marketscan/internal/jobs/background"
)

// JobHandlers exposes manual control over the background pipeline.
type JobHandlers struct {
	scheduler *background.JobScheduler
}

func NewJobHandlers(scheduler *background.JobScheduler) *JobHandlers {
	return &JobHandlers{scheduler: scheduler}
}

// RunDailyUpdate triggers the pipeline out of schedule. The run is detached
// from the request: it continues after the response is sent.
func (h *JobHandlers) RunDailyUpdate(c echo.Context) error {
	go func() {
		if err := h.scheduler.TriggerDailyUpdate(context.Background()); err != nil {
			log.Printf("Manual daily update failed: %v", err)
		}
	}()
	return c.JSON(http.StatusAccepted, map[string]interface{}{"status": "started"})
}

// GetJobStatus reports the registered background jobs.
func (h *JobHandlers) GetJobStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}
