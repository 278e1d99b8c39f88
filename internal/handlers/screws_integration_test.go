package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/screwcat/internal/app"
	"github.com/charlesng35/screwcat/internal/handlers"
	"github.com/charlesng35/screwcat/internal/handlers/testutil"
	"github.com/charlesng35/screwcat/internal/middleware"
	"github.com/charlesng35/screwcat/internal/models"
	"github.com/charlesng35/screwcat/internal/services"
	apperrors "github.com/charlesng35/screwcat/pkg/errors"
)

type screwPayload struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Quantity      string `json:"quantity"`
	ComponentType string `json:"componentType"`
	Material      string `json:"material"`
	Category      string `json:"category"`
	Price         string `json:"price"`
	Note          string `json:"note"`
}

type fastenerPayload struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	TypeID     uint   `json:"typeId"`
	MaterialID uint   `json:"materialId"`
	SizeID     uint   `json:"sizeId"`
	IsDeleted  bool   `json:"isDeleted"`
}

func referenceID(t *testing.T, env *testutil.Env, model any, name string) uint {
	t.Helper()
	var id uint
	require.NoError(t, env.DB.Model(model).Where("name = ?", name).Pluck("id", &id).Error)
	require.NotZero(t, id)
	return id
}

func createScrew(t *testing.T, env *testutil.Env, name, material, category string) fastenerPayload {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/v2/screws", map[string]any{
		"name":     name,
		"material": material,
		"category": category,
		"price":    "1500",
		"quantity": 10,
		"note":     "",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created fastenerPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.NotZero(t, created.ID)
	return created
}

func TestListIsServedFromCacheOnSecondRead(t *testing.T) {
	env := testutil.NewEnv(t)
	createScrew(t, env, "M8x40", "Steel", "Hex Bolt")

	first := env.Request(http.MethodGet, "/api/v2/screws", nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Equal(t, middleware.CacheMiss, first.Header().Get(middleware.HeaderCache))

	// A row written behind the API is invisible until the cached list expires or is invalidated.
	require.NoError(t, env.DB.Create(&models.Fastener{
		Name: "hidden", TypeID: models.DefaultTypeID, SizeID: models.DefaultSizeID, MaterialID: models.DefaultMaterialID,
	}).Error)

	second := env.Request(http.MethodGet, "/api/v2/screws", nil)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, middleware.CacheHit, second.Header().Get(middleware.HeaderCache))
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	require.Equal(t, "public, max-age=300", second.Header().Get("Cache-Control"))
}

func TestWritesInvalidateCachedReads(t *testing.T) {
	env := testutil.NewEnv(t)
	created := createScrew(t, env, "M8x40", "Steel", "Hex Bolt")
	itemPath := fmt.Sprintf("/api/v2/screws/%d", created.ID)

	require.Equal(t, middleware.CacheMiss, env.Request(http.MethodGet, "/api/v2/screws", nil).Header().Get(middleware.HeaderCache))
	require.Equal(t, middleware.CacheMiss, env.Request(http.MethodGet, itemPath, nil).Header().Get(middleware.HeaderCache))
	require.Equal(t, middleware.CacheHit, env.Request(http.MethodGet, itemPath, nil).Header().Get(middleware.HeaderCache))

	w := env.Request(http.MethodPatch, itemPath, map[string]any{
		"id":       created.ID,
		"name":     "M8x45",
		"note":     "longer",
		"price":    "1600",
		"quantity": "12",
		"material": "Brass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, w.Header().Get(handlers.HeaderCacheInvalidation))

	item := env.Request(http.MethodGet, itemPath, nil)
	require.Equal(t, middleware.CacheMiss, item.Header().Get(middleware.HeaderCache))
	var view screwPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, item).Data, &view)
	require.Equal(t, "M8x45", view.Name)
	require.Equal(t, "Brass", view.Material)
	require.Equal(t, "Hex Bolt", view.ComponentType)

	list := env.Request(http.MethodGet, "/api/v2/screws", nil)
	require.Equal(t, middleware.CacheMiss, list.Header().Get(middleware.HeaderCache))
}

func TestCreateFallsBackToSentinelMaterial(t *testing.T) {
	env := testutil.NewEnv(t)

	created := createScrew(t, env, "Mystery", "Unobtainium", "Hex Bolt")
	require.Equal(t, models.DefaultMaterialID, created.MaterialID)
	require.Equal(t, models.DefaultSizeID, created.SizeID)
	require.Equal(t, referenceID(t, env, &models.FastenerType{}, "Hex Bolt"), created.TypeID)
}

func TestWritesAnswerWithStoredRow(t *testing.T) {
	env := testutil.NewEnv(t)
	created := createScrew(t, env, "M8x40", "Steel", "Hex Bolt")
	require.NotZero(t, created.ID)
	require.Equal(t, referenceID(t, env, &models.Material{}, "Steel"), created.MaterialID)
	require.False(t, created.IsDeleted)

	w := env.Request(http.MethodPatch, fmt.Sprintf("/api/v2/screws/%d", created.ID), map[string]any{
		"id": created.ID, "name": "M8x40", "price": "1200", "quantity": "3", "material": "Brass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.DecodeResponse(t, w).Data

	var updated fastenerPayload
	testutil.DecodeInto(t, data, &updated)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.TypeID, updated.TypeID)
	require.Equal(t, referenceID(t, env, &models.Material{}, "Brass"), updated.MaterialID)

	var fields map[string]any
	testutil.DecodeInto(t, data, &fields)
	require.NotContains(t, fields, "material")
	require.NotContains(t, fields, "componentType")
}

func TestCreateValidatesPayload(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/v2/screws", map[string]any{
		"name":     "M8x40",
		"material": "Steel",
		"quantity": "ten",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := testutil.DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.Equal(t, apperrors.CodeValidationError, resp.Error.Code)
	fields := map[string]string{}
	for _, field := range resp.Error.Errors {
		fields[field.Field] = field.Code
	}
	require.Equal(t, map[string]string{"price": "required", "quantity": "decimal"}, fields)

	w = env.Request(http.MethodPost, "/api/v2/screws", "not an object")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, apperrors.CodeBadRequest, testutil.DecodeResponse(t, w).Error.Code)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	env := testutil.NewEnv(t)
	createScrew(t, env, "M8x40", "Steel", "Hex Bolt")

	w := env.Request(http.MethodPost, "/api/v2/screws", map[string]any{
		"name": "M8x40", "material": "Steel", "category": "Hex Bolt", "price": "1", "quantity": "1",
	})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	require.Equal(t, apperrors.CodeResourceExists, testutil.DecodeResponse(t, w).Error.Code)
}

func TestPaginatedList(t *testing.T) {
	env := testutil.NewEnv(t)
	typeID := referenceID(t, env, &models.FastenerType{}, "Wood Screw")
	steel := referenceID(t, env, &models.Material{}, "Steel")

	rows := make([]models.Fastener, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, models.Fastener{
			Name: fmt.Sprintf("W-%03d", i), Quantity: "1", Price: "1000",
			TypeID: typeID, SizeID: models.DefaultSizeID, MaterialID: steel,
		})
	}
	require.NoError(t, env.DB.Create(&rows).Error)

	w := env.Request(http.MethodGet, "/api/v2/screws?page=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	var items []screwPayload
	testutil.DecodeInto(t, resp.Data, &items)
	require.Len(t, items, 50)
	require.Equal(t, "W-050", items[0].Name)
	require.Equal(t, "Wood Screw", items[0].Category)

	require.NotNil(t, resp.Pagination)
	require.Equal(t, 1, resp.Pagination.Page)
	require.Equal(t, 50, resp.Pagination.PageSize)
	require.Equal(t, int64(120), resp.Pagination.TotalItems)
	require.Equal(t, 3, resp.Pagination.TotalPages)
	require.True(t, resp.Pagination.HasNextPage)
	require.True(t, resp.Pagination.HasPreviousPage)

	negative := testutil.DecodeResponse(t, env.Request(http.MethodGet, "/api/v2/screws?page=-4", nil))
	require.Equal(t, 0, negative.Pagination.Page)
	require.False(t, negative.Pagination.HasPreviousPage)

	v1 := env.Request(http.MethodGet, "/api/v1/screws", nil)
	require.Equal(t, http.StatusOK, v1.Code)
	unpaged := testutil.DecodeResponse(t, v1)
	require.Nil(t, unpaged.Pagination)
	testutil.DecodeInto(t, unpaged.Data, &items)
	require.Len(t, items, 120)
}

func TestQueryOrderSharesCacheEntry(t *testing.T) {
	env := testutil.NewEnv(t)

	require.Equal(t, middleware.CacheMiss, env.Request(http.MethodGet, "/api/v2/screws?page=0&lang=vi", nil).Header().Get(middleware.HeaderCache))
	require.Equal(t, middleware.CacheHit, env.Request(http.MethodGet, "/api/v2/screws?lang=vi&page=0", nil).Header().Get(middleware.HeaderCache))
	require.Equal(t, middleware.CacheMiss, env.Request(http.MethodGet, "/api/v2/screws?lang=vi&page=0", nil, "Accept-Language", "en").Header().Get(middleware.HeaderCache))
}

func TestUpdateUnknownMaterialIsRejected(t *testing.T) {
	env := testutil.NewEnv(t)
	created := createScrew(t, env, "M8x40", "Steel", "Hex Bolt")

	w := env.Request(http.MethodPatch, fmt.Sprintf("/api/v2/screws/%d", created.ID), map[string]any{
		"name": "renamed", "note": "", "price": "1", "quantity": "1", "material": "Unobtainium",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, apperrors.CodeValidationError, resp.Error.Code)
	require.Equal(t, "material", resp.Error.Errors[0].Field)

	var stored models.Fastener
	require.NoError(t, env.DB.First(&stored, created.ID).Error)
	require.Equal(t, "M8x40", stored.Name)
}

func TestUpdateRejectsMismatchedID(t *testing.T) {
	env := testutil.NewEnv(t)
	created := createScrew(t, env, "M8x40", "Steel", "Hex Bolt")

	w := env.Request(http.MethodPatch, fmt.Sprintf("/api/v2/screws/%d", created.ID), map[string]any{
		"id": created.ID + 1, "name": "x", "price": "1", "quantity": "1", "material": "Steel",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, apperrors.CodeValidationError, testutil.DecodeResponse(t, w).Error.Code)
}

func TestUpdateMissingScrew(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPatch, "/api/v2/screws/4242", map[string]any{
		"name": "x", "price": "1", "quantity": "1", "material": "Steel",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, apperrors.CodeNotFound, resp.Error.Code)
	require.Equal(t, "Screw not found", resp.Error.Message)

	w = env.Request(http.MethodGet, "/api/v2/screws/not-a-number", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSoftDeletesByName(t *testing.T) {
	env := testutil.NewEnv(t)
	created := createScrew(t, env, "M8x40", "Steel", "Hex Bolt")
	other := createScrew(t, env, "M10x50", "Steel", "Hex Bolt")

	w := env.Request(http.MethodDelete, fmt.Sprintf("/api/v2/screws/%d", other.ID), map[string]string{"name": "M8x40"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var deleted fastenerPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &deleted)
	require.Equal(t, created.ID, deleted.ID)
	require.True(t, deleted.IsDeleted)

	var items []screwPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, env.Request(http.MethodGet, "/api/v1/screws", nil)).Data, &items)
	require.Len(t, items, 1)
	require.Equal(t, "M10x50", items[0].Name)

	require.Equal(t, http.StatusNotFound, env.Request(http.MethodGet, fmt.Sprintf("/api/v2/screws/%d", created.ID), nil).Code)

	w = env.Request(http.MethodDelete, fmt.Sprintf("/api/v2/screws/%d", other.ID), map[string]string{"name": "M8x40"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodDelete, fmt.Sprintf("/api/v1/screws/%d", other.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestReferenceListsUseLongTTL(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/v2/screws/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var types []services.ReferenceView
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &types)
	names := make([]string, 0, len(types))
	for _, ref := range types {
		names = append(names, ref.Name)
	}
	require.Contains(t, names, "Hex Bolt")
	require.Contains(t, names, models.UnknownName)

	require.Equal(t, time.Hour, env.Redis.TTL("test:SCREW_TYPES:GET:/api/v2/screws/types:"))

	w = env.Request(http.MethodGet, "/api/v1/screws/materials", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, time.Hour, env.Redis.TTL("test:SCREW_MATERIALS:GET:/api/v1/screws/materials:"))
}

func TestInvalidationFailureIsReported(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Redis.Close()

	w := env.Request(http.MethodPost, "/api/v2/screws", map[string]any{
		"name": "M8x40", "material": "Steel", "category": "Hex Bolt", "price": "1", "quantity": "1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "failed", w.Header().Get(handlers.HeaderCacheInvalidation))

	read := env.Request(http.MethodGet, "/api/v2/screws", nil)
	require.Equal(t, http.StatusOK, read.Code, "reads fall through to the database")
}

func TestStrictInvalidationFailsTheWrite(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) { cfg.Cache.StrictInvalidation = true })
	env.Redis.Close()

	w := env.Request(http.MethodPost, "/api/v2/screws", map[string]any{
		"name": "M8x40", "material": "Steel", "category": "Hex Bolt", "price": "1", "quantity": "1",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, apperrors.CodeDependencyFailure, testutil.DecodeResponse(t, w).Error.Code)
}

func TestCacheCanBeDisabled(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) { cfg.Cache.Enabled = false })

	first := env.Request(http.MethodGet, "/api/v2/screws", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Empty(t, first.Header().Get(middleware.HeaderCache))
	require.Empty(t, env.Redis.Keys())
}
