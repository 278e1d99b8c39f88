package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/charlesng35/screwcat/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Set(RequestIDKey, "req_fixed")

	payload := gin.H{"message": "ok"}
	Success(ctx, http.StatusCreated, payload)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	require.Equal(t, http.StatusCreated, resp.Status.Code)
	require.Equal(t, "Success", resp.Status.Message)
	require.Equal(t, "req_fixed", resp.RequestID)
	require.NotEmpty(t, resp.Timestamp)
}

func TestSuccessWithPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithPagination(ctx, http.StatusOK, []string{"a", "b"}, NewPagination(1, 50, 120))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Pagination)
	require.Equal(t, 3, resp.Pagination.TotalPages)
	require.True(t, resp.Pagination.HasNextPage)
	require.True(t, resp.Pagination.HasPreviousPage)
	require.True(t, strings.HasPrefix(resp.RequestID, "req_"))
}

func TestNewPaginationBoundaries(t *testing.T) {
	empty := NewPagination(0, 50, 0)
	require.Equal(t, 0, empty.TotalPages)
	require.False(t, empty.HasNextPage)
	require.False(t, empty.HasPreviousPage)

	last := NewPagination(1, 50, 100)
	require.Equal(t, 2, last.TotalPages)
	require.False(t, last.HasNextPage)
	require.True(t, last.HasPreviousPage)

	clamped := NewPagination(-3, 50, 10)
	require.Equal(t, 0, clamped.Page)
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.NewValidation("invalid screw", appErrors.FieldError{Field: "price", Message: "price is required", Code: "required"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "Error", resp.Status.Message)
	require.NotNil(t, resp.Error)
	require.Equal(t, appErrors.CodeValidationError, resp.Error.Code)
	require.Len(t, resp.Error.Errors, 1)
	require.Equal(t, "price", resp.Error.Errors[0].Field)
}

func TestErrorWithGenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}
