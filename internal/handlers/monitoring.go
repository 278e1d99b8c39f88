package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/pkg/response"
)

// MonitoringHandler surfaces the in-process cache, import and maintenance counters.
type MonitoringHandler struct {
	module          *monitoring.Module
	metricsEnabled  bool
	metricsEndpoint string
}

// NewMonitoringHandler returns nil when no module is configured.
func NewMonitoringHandler(module *monitoring.Module, metricsEnabled bool, endpoint string) *MonitoringHandler {
	if module == nil {
		return nil
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	return &MonitoringHandler{module: module, metricsEnabled: metricsEnabled, metricsEndpoint: endpoint}
}

// GET /monitoring/summary
func (h *MonitoringHandler) Summary(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"summary": h.module.Summary(),
		"prometheus": gin.H{
			"enabled":  h.metricsEnabled,
			"endpoint": h.metricsEndpoint,
		},
	})
}
