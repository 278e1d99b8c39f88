package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/handlers"
	"github.com/charlesng35/screwcat/internal/middleware"
)

func registerFileRoutes(r *gin.RouterGroup, handler *handlers.ImportHandler, store middleware.RateStore, limit app.RateLimitConfig) {
	if r == nil || handler == nil {
		return
	}

	files := r.Group("/files")
	if limit.Enabled {
		files.Use(middleware.RateLimit(store, limit.Requests, limit.Window))
	}
	files.POST("/importExcel", handler.ImportExcel)
}
