package routes

import (
	"net/http"

	"shollu-partner/internal/utils"

	"github.com/gin-gonic/gin"
)

// health answers load balancer probes. It does not call the backend.
func (h *Handlers) health(c *gin.Context) {
	msg := c.Query("ping")
	if msg == "" {
		msg = "pong"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  msg,
		"version":  utils.GetVersion(),
		"backend":  h.Config.Backend.Mode,
		"scanners": h.Attendance.Len(),
	})
}
