package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes rendered to API consumers. The set is closed; handlers must not invent new codes.
const (
	CodeBadRequest                  = "bad_request"
	CodeUnauthorized                = "unauthorized"
	CodeForbidden                   = "forbidden"
	CodeNotFound                    = "not_found"
	CodeMethodNotAllowed            = "method_not_allowed"
	CodeConflict                    = "conflict"
	CodeUnprocessableEntity         = "unprocessable_entity"
	CodeTooManyRequests             = "too_many_requests"
	CodeInternalServerError         = "internal_server_error"
	CodeNotImplemented              = "not_implemented"
	CodeServiceUnavailable          = "service_unavailable"
	CodeValidationError             = "validation_error"
	CodeBusinessConstraintViolation = "business_constraint_violation"
	CodeResourceExists              = "resource_exists"
	CodeResourceExpired             = "resource_expired"
	CodeDependencyFailure           = "dependency_failure"
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Value   any    `json:"value,omitempty"`
}

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    any          `json:"details,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	StatusCode int          `json:"-"`
	Internal   error        `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError with a replaced client-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// WithDetails returns a copy of the AppError carrying additional details.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Details = details
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrBadRequest = &AppError{
		Code:       CodeBadRequest,
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       CodeUnauthorized,
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       CodeForbidden,
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       CodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       CodeMethodNotAllowed,
		Message:    "Method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
	}

	ErrConflict = &AppError{
		Code:       CodeConflict,
		Message:    "Request conflicts with the current state of the resource",
		StatusCode: http.StatusConflict,
	}

	ErrUnprocessableEntity = &AppError{
		Code:       CodeUnprocessableEntity,
		Message:    "Request could not be processed",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrTooManyRequests = &AppError{
		Code:       CodeTooManyRequests,
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternalServer = &AppError{
		Code:       CodeInternalServerError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrNotImplemented = &AppError{
		Code:       CodeNotImplemented,
		Message:    "Not implemented",
		StatusCode: http.StatusNotImplemented,
	}

	ErrServiceUnavailable = &AppError{
		Code:       CodeServiceUnavailable,
		Message:    "Service unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrValidation = &AppError{
		Code:       CodeValidationError,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
	}

	ErrBusinessConstraint = &AppError{
		Code:       CodeBusinessConstraintViolation,
		Message:    "Business constraint violated",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrResourceExists = &AppError{
		Code:       CodeResourceExists,
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	ErrResourceExpired = &AppError{
		Code:       CodeResourceExpired,
		Message:    "Resource has expired",
		StatusCode: http.StatusGone,
	}

	ErrDependencyFailure = &AppError{
		Code:       CodeDependencyFailure,
		Message:    "A downstream dependency failed",
		StatusCode: http.StatusBadGateway,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       CodeInternalServerError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps request errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound returns a not-found error with a resource specific message.
func NewNotFound(message string) *AppError {
	return ErrNotFound.WithMessage(message)
}

// NewValidation reports field-level validation failures.
func NewValidation(message string, fields ...FieldError) *AppError {
	if message == "" {
		message = ErrValidation.Message
	}
	cpy := ErrValidation.WithMessage(message)
	cpy.Errors = append([]FieldError(nil), fields...)
	return cpy
}

// NewDependencyFailure marks a failure of an external collaborator such as the cache.
func NewDependencyFailure(message string, err error) *AppError {
	if message == "" {
		message = ErrDependencyFailure.Message
	}
	return ErrDependencyFailure.WithMessage(message).WithInternal(err)
}
