package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/handlers"
	"github.com/charlesng35/screwcat/internal/monitoring"
)

// registerHealthRoutes mounts the health endpoints on every router given, normally the engine root and
// the API base path.
func registerHealthRoutes(routers []gin.IRouter, cfg *app.Config, mon *monitoring.Module) {
	var handler *handlers.HealthHandler
	if cfg.Monitoring.Health.Enabled && mon != nil {
		handler = handlers.NewHealthHandler(mon.Health())
	}

	for _, router := range routers {
		if handler == nil {
			router.GET("/health", handlers.DisabledHealth)
			router.GET("/health/live", handlers.DisabledHealth)
			router.GET("/health/ready", handlers.DisabledHealth)
			continue
		}
		router.GET("/health", handler.Health)
		router.GET("/health/live", handler.Live)
		router.GET("/health/ready", handler.Ready)
	}
}
