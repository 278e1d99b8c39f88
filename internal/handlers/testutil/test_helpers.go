package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/screwcat/internal/api"
	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/cache"
	sharedtestutil "github.com/charlesng35/screwcat/internal/database/testutil"
	"github.com/charlesng35/screwcat/internal/middleware"
	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/internal/monitoring/checks"
	"github.com/charlesng35/screwcat/internal/services"
	"github.com/charlesng35/screwcat/pkg/response"
)

// Catalog reference rows seeded into every environment.
var (
	SeedTypes     = []string{"Hex Bolt", "Wood Screw", "Machine Screw"}
	SeedMaterials = []string{"Steel", "Brass", "Stainless"}
)

// Env encapsulates a fully-wired API instance backed by in-memory sqlite and an in-process
// redis for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Store  *cache.RedisStore
	Config *app.Config
	Router *gin.Engine
}

// Option adjusts the configuration before the router is built.
type Option func(*app.Config)

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithReferenceData(SeedTypes, SeedMaterials))

	cfg := app.DefaultConfig()
	cfg.Cache.Namespace = "test:"
	for _, opt := range opts {
		opt(cfg)
	}

	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore(context.Background(), cache.RedisConfig{
		Address:   mr.Addr(),
		Namespace: cfg.Cache.Namespace,
		MaxBytes:  cfg.Cache.MaxEntryBytes,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	handle := cache.StaticHandle(store)
	invalidator := services.NewInvalidator(handle)

	catalog, err := services.NewCatalogService(db,
		services.WithInvalidator(invalidator),
		services.WithStrictInvalidation(cfg.Cache.StrictInvalidation),
	)
	require.NoError(t, err)

	imports, err := services.NewImportService(db, nil,
		services.WithImportInvalidator(invalidator),
		services.WithImportOptions(cfg.Import.ReconcilerOptions()),
		services.WithImportStrictInvalidation(cfg.Cache.StrictInvalidation),
	)
	require.NoError(t, err)

	module, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	module.Health().Register(monitoring.Liveness, checks.Database(db, 0))
	module.Health().Register(monitoring.Readiness, checks.Cache(handle, cfg.Cache.Enabled, 0))
	monitoring.SetModule(module)

	router, err := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Catalog:    catalog,
		Imports:    imports,
		Cache:      handle,
		RateStore:  middleware.NewCacheRateStore(handle),
		Monitoring: module,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Redis:  mr,
		Store:  store,
		Config: cfg,
		Router: router,
	}
}

// Request performs a JSON request against the router. Headers are given as name/value pairs.
func (e *Env) Request(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.T, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Upload posts payload as the multipart "file" field named filename.
func (e *Env) Upload(path, filename string, payload []byte) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(e.T, err)
		_, err = part.Write(payload)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success    bool                 `json:"success"`
	Status     response.Status      `json:"status"`
	RequestID  string               `json:"requestId"`
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorInfo  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals raw JSON data into dest.
func DecodeInto(t *testing.T, data json.RawMessage, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, dest), string(data))
}
