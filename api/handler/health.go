package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyohosu/translate-nudge/models"
	"github.com/garyohosu/translate-nudge/trigger"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports "stopped" once the scheduler has been shut down.
func Health(sched *trigger.Scheduler, target string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := sched.Stats()

		status := "healthy"
		if st.Stopped {
			status = "stopped"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			State:     st.StateName,
			Target:    target,
			Version:   Version,
			StartedAt: startTime,
		})
	}
}
