package handlers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/charlesng35/screwcat/pkg/errors"
	"github.com/charlesng35/screwcat/pkg/response"
	appValidator "github.com/charlesng35/screwcat/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload").WithInternal(err))
		return false
	}
	return validate(c, dest)
}

// bindOptionalJSON is bindAndValidate for endpoints where the body may be omitted.
func bindOptionalJSON[T any](c *gin.Context, dest *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return validate(c, dest)
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload").WithInternal(err))
		return false
	}
	return validate(c, dest)
}

func validate(c *gin.Context, dest any) bool {
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}
	return true
}

func validationError(err error) *apperrors.AppError {
	var ve appValidator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return apperrors.NewBadRequest("invalid request payload")
	}

	fields := make([]apperrors.FieldError, 0, len(ve))
	messages := make([]string, 0, len(ve))
	for _, failure := range ve {
		msg := fieldMessage(failure)
		messages = append(messages, msg)
		fields = append(fields, apperrors.FieldError{
			Field:   failure.Field,
			Message: msg,
			Code:    failure.Tag,
		})
	}
	return apperrors.NewValidation(strings.Join(messages, "; "), fields...)
}

func fieldMessage(failure appValidator.ValidationError) string {
	field := prettifyFieldName(failure.Field)
	switch failure.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "decimal":
		return fmt.Sprintf("%s must be a number", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, failure.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, failure.Param)
	default:
		if failure.Param != "" {
			return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
		}
		return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
	}
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(key))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.NewBadRequest("Invalid screw id"))
		return 0, false
	}
	return uint(id), true
}
