package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/monitoring"
)

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		return nil
	}
	return &HealthHandler{manager: manager}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.manager.Evaluate(requestContext(c))
	c.JSON(reportStatus(report), gin.H{
		"success":   report.Success,
		"status":    report.Status,
		"checkedAt": report.CheckedAt,
	})
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	report := h.manager.Evaluate(requestContext(c), monitoring.Liveness)
	c.JSON(reportStatus(report), report)
}

// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	report := h.manager.Evaluate(requestContext(c), monitoring.Readiness)
	c.JSON(reportStatus(report), report)
}

// DisabledHealth answers health requests when health checks are switched off.
func DisabledHealth(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}

func reportStatus(report monitoring.HealthReport) int {
	if !report.Success {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
