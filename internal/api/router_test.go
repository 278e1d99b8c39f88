package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/screwcat/internal/api"
	"github.com/charlesng35/screwcat/internal/app"
	sharedtestutil "github.com/charlesng35/screwcat/internal/database/testutil"
	"github.com/charlesng35/screwcat/internal/handlers/testutil"
	"github.com/charlesng35/screwcat/internal/services"
	apperrors "github.com/charlesng35/screwcat/pkg/errors"
)

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	require.ErrorContains(t, err, "config")

	_, err = api.NewRouter(api.Dependencies{Config: app.DefaultConfig()})
	require.ErrorContains(t, err, "catalog")
}

func TestUnknownRoutesUseEnvelope(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/v3/screws", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.Equal(t, apperrors.CodeNotFound, resp.Error.Code)

	w = env.Request(http.MethodPut, "/api/v2/screws", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, apperrors.CodeMethodNotAllowed, testutil.DecodeResponse(t, w).Error.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/v1/screws", nil, "X-Request-ID", "req-123")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	require.Equal(t, "req-123", testutil.DecodeResponse(t, w).RequestID)
}

func TestHealthEndpointsAreMounted(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/health/live", "/api/health", "/api/health/ready"} {
		w := env.Request(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestHealthCanBeDisabled(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) { cfg.Monitoring.Health.Enabled = false })

	require.Equal(t, http.StatusNotFound, env.Request(http.MethodGet, "/health", nil).Code)
}

func TestMetricsAndSummary(t *testing.T) {
	env := testutil.NewEnv(t)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/api/v2/screws", nil).Code)

	metrics := env.Request(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, metrics.Code)
	require.Contains(t, metrics.Body.String(), "screwcat_")

	summary := env.Request(http.MethodGet, "/api/monitoring/summary", nil)
	require.Equal(t, http.StatusOK, summary.Code)
	var payload struct {
		Prometheus struct {
			Enabled  bool   `json:"enabled"`
			Endpoint string `json:"endpoint"`
		} `json:"prometheus"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, summary).Data, &payload)
	require.True(t, payload.Prometheus.Enabled)
	require.Equal(t, "/metrics", payload.Prometheus.Endpoint)
}

func TestCustomBasePath(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) { cfg.Server.BasePath = "catalog/" })

	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/catalog/v1/screws", nil).Code)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/catalog/health", nil).Code)
	require.Equal(t, http.StatusNotFound, env.Request(http.MethodGet, "/api/v1/screws", nil).Code)
}

func TestRootBasePathRegistersHealthOnce(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) { cfg.Server.BasePath = "/" })

	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/v2/screws", nil).Code)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/health", nil).Code)
}

func TestRouterWithoutCacheOrMonitoring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	catalog, err := services.NewCatalogService(db)
	require.NoError(t, err)
	imports, err := services.NewImportService(db, nil)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:  app.DefaultConfig(),
		Catalog: catalog,
		Imports: imports,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/screws/types", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("X-Cache"))

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "disabled"))
}

func TestCORSPreflight(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) {
		cfg.Server.CORS.AllowedOrigins = []string{"https://shop.example.com"}
	})

	w := env.Request(http.MethodOptions, "/api/v2/screws", nil,
		"Origin", "https://shop.example.com",
		"Access-Control-Request-Method", http.MethodPatch,
	)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
