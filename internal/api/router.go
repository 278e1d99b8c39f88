package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/cache"
	"github.com/charlesng35/screwcat/internal/handlers"
	"github.com/charlesng35/screwcat/internal/middleware"
	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/internal/services"
)

// Dependencies are the collaborators the router mounts. Cache and RateStore are optional;
// a nil Cache serves every read from the database.
type Dependencies struct {
	Config     *app.Config
	Catalog    *services.CatalogService
	Imports    *services.ImportService
	Cache      *cache.Handle
	RateStore  middleware.RateStore
	Monitoring *monitoring.Module
}

// NewRouter builds the Gin engine, wires middleware and registers the catalog routes under the
// configured base path.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog service must be provided")
	}
	if deps.Imports == nil {
		return nil, errors.New("import service must be provided")
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(cfg.Server.SlowRequest))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: cfg.Server.CORS.AllowedOrigins}))

	handle := deps.Cache
	if !cfg.Cache.Enabled {
		handle = nil
	}

	prefix := basePath(cfg.Server.BasePath)
	base := r.Group(prefix)

	registerScrewRoutes(base.Group("/v1"), handlers.NewScrewHandler(deps.Catalog, false), handle, cfg.Cache)
	registerScrewRoutes(base.Group("/v2"), handlers.NewScrewHandler(deps.Catalog, true), handle, cfg.Cache)

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}
	registerFileRoutes(base.Group("/v1"), handlers.NewImportHandler(deps.Imports, cfg.Import.MaxUploadBytes()), rateStore, cfg.Import.RateLimit)

	healthRouters := []gin.IRouter{r}
	if prefix != "/" {
		healthRouters = append(healthRouters, base)
	}
	registerHealthRoutes(healthRouters, cfg, deps.Monitoring)
	registerMonitoringRoutes(r, base, cfg, deps.Monitoring)

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

func basePath(path string) string {
	path = strings.TrimRight(strings.TrimSpace(path), "/")
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func registerMonitoringRoutes(r *gin.Engine, base *gin.RouterGroup, cfg *app.Config, mon *monitoring.Module) {
	if mon == nil {
		return
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(mon.Handler()))
	}

	handler := handlers.NewMonitoringHandler(mon, cfg.Monitoring.Prometheus.Enabled, cfg.Monitoring.Prometheus.Endpoint)
	base.GET("/monitoring/summary", handler.Summary)
}
