package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/cache"
	"github.com/charlesng35/screwcat/internal/handlers"
	"github.com/charlesng35/screwcat/internal/middleware"
	"github.com/charlesng35/screwcat/internal/services"
)

func registerScrewRoutes(r *gin.RouterGroup, handler *handlers.ScrewHandler, handle *cache.Handle, cfg app.CacheConfig) {
	if r == nil || handler == nil {
		return
	}

	listCache := middleware.Cache(handle, cfg.MiddlewareOptions(services.NamespaceFastenerList, 0))
	itemOpts := cfg.MiddlewareOptions(services.NamespaceFastener, 0)
	itemOpts.NamespaceFunc = fastenerNamespace
	itemCache := middleware.Cache(handle, itemOpts)
	typesCache := middleware.Cache(handle, cfg.MiddlewareOptions(services.NamespaceTypes, cfg.ReferenceTTL))
	materialsCache := middleware.Cache(handle, cfg.MiddlewareOptions(services.NamespaceMaterials, cfg.ReferenceTTL))

	screws := r.Group("/screws")
	{
		screws.GET("", listCache, handler.List)
		screws.POST("", handler.Create)
		screws.GET("/types", typesCache, handler.Types)
		screws.GET("/materials", materialsCache, handler.Materials)
		screws.GET("/:id", itemCache, handler.Get)
		screws.PATCH("/:id", handler.Update)
		screws.DELETE("/:id", handler.Delete)
	}
}

// fastenerNamespace keys item reads by the canonical id so "/screws/07" and "/screws/7" are
// cleared together.
func fastenerNamespace(c *gin.Context) string {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		return services.NamespaceFastener + "invalid:"
	}
	return services.FastenerNamespace(uint(id))
}
