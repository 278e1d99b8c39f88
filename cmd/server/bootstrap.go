package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/screwcat/internal/api"
	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/app/maintenance"
	"github.com/charlesng35/screwcat/internal/cache"
	"github.com/charlesng35/screwcat/internal/database"
	"github.com/charlesng35/screwcat/internal/middleware"
	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/internal/monitoring/checks"
	"github.com/charlesng35/screwcat/internal/services"
	"github.com/charlesng35/screwcat/pkg/logger"
)

const checkTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Cache      *cache.Handle
	Monitoring *monitoring.Module
	Cleaner    *maintenance.Cleaner
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, the response cache, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	configureGinMode(cfg.Server.Mode)

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)

	var dbStore *cache.DatabaseStore
	if cfg.Cache.Enabled {
		stack.Cache, dbStore = initialiseCache(ctx, cfg, stack.DB, log)
	}

	invalidator := services.NewInvalidator(stack.Cache)

	catalog, err := services.NewCatalogService(stack.DB,
		services.WithInvalidator(invalidator),
		services.WithStrictInvalidation(cfg.Cache.StrictInvalidation),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise catalog service: %w", err)
	}

	imports, err := services.NewImportService(stack.DB, nil,
		services.WithImportInvalidator(invalidator),
		services.WithImportOptions(cfg.Import.ReconcilerOptions()),
		services.WithImportStrictInvalidation(cfg.Cache.StrictInvalidation),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise import service: %w", err)
	}

	if dbStore != nil {
		stack.Cleaner = maintenance.NewCleaner(dbStore, maintenance.WithSweepSchedule(cfg.Maintenance.CacheSweep))
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	registerHealthChecks(stack, cfg)

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:     cfg,
		Catalog:    catalog,
		Imports:    imports,
		Cache:      stack.Cache,
		RateStore:  middleware.NewCacheRateStore(stack.Cache),
		Monitoring: stack.Monitoring,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// initialiseCache picks the redis store when configured and the database store otherwise. The
// redis store is built lazily so the API starts while redis is down. The returned DatabaseStore
// is nil unless it backs the handle.
func initialiseCache(ctx context.Context, cfg *app.Config, db *gorm.DB, log *zap.Logger) (*cache.Handle, *cache.DatabaseStore) {
	if cfg.Cache.Redis.Enabled {
		redisCfg := cfg.Cache.RedisClientConfig()
		handle := cache.NewHandle(func(ctx context.Context) (cache.Store, error) {
			store, err := cache.NewRedisStore(ctx, redisCfg)
			if err != nil {
				return nil, err
			}
			logger.WithModule("cache").Info("redis connected")
			return store, nil
		}, cache.WithRetryInterval(cfg.Cache.RetryInterval))

		if _, err := handle.Store(ctx); err != nil {
			log.Warn("redis unavailable; serving uncached until it recovers", zap.Error(err))
		}
		return handle, nil
	}

	store := cache.NewDatabaseStore(db, cfg.Cache.Namespace, cfg.Cache.Codec())
	log.Info("using database-backed response cache")
	return cache.StaticHandle(store), store
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.Register(monitoring.Liveness, checks.Database(stack.DB, checkTimeout))

	var pinger checks.CachePinger
	if stack.Cache != nil {
		pinger = stack.Cache
	}
	health.Register(monitoring.Readiness, checks.Cache(pinger, cfg.Cache.Enabled, checkTimeout))
	if stack.Cleaner != nil {
		health.Register(monitoring.Readiness, checks.Maintenance(0))
	}
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			log.Warn("cache shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", database.ResolveDriver(dbCfg)))

	return db, nil
}

// configureGinMode honours server.mode, with GIN_DEBUG=true forcing debug output.
func configureGinMode(mode string) {
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug == "true" {
		gin.SetMode(gin.DebugMode)
		return
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}
