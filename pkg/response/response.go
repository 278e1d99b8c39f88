package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/charlesng35/screwcat/pkg/errors"
)

// RequestIDKey is the gin context key under which the request id middleware stores the id.
const RequestIDKey = "request_id"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Response defines the uniform API envelope.
type Response struct {
	Success    bool        `json:"success"`
	Status     Status      `json:"status"`
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorInfo  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Status mirrors the HTTP status inside the body so clients need not inspect transport metadata.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details interface{}            `json:"details,omitempty"`
	Errors  []appErrors.FieldError `json:"errors,omitempty"`
}

// Pagination describes page metadata for list endpoints.
type Pagination struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"pageSize"`
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPagination derives page counts and navigation flags for a zero-based page index.
func NewPagination(page, pageSize int, totalItems int64) *Pagination {
	if page < 0 {
		page = 0
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pagination{
		Page:            page,
		PageSize:        pageSize,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages-1,
		HasPreviousPage: page > 0,
	}
}

// NewSuccess builds a success envelope without writing it.
func NewSuccess(statusCode int, data interface{}, pagination *Pagination, requestID string) Response {
	return Response{
		Success:    true,
		Status:     Status{Code: statusCode, Message: "Success"},
		RequestID:  ensureRequestID(requestID),
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Data:       data,
		Pagination: pagination,
	}
}

// NewError builds an error envelope from any error without writing it.
func NewError(err error, requestID string) (int, Response) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return status, Response{
		Success:   false,
		Status:    Status{Code: status, Message: "Error"},
		RequestID: ensureRequestID(requestID),
		Timestamp: time.Now().UTC().Format(timestampLayout),
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
			Errors:  appErr.Errors,
		},
	}
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, NewSuccess(statusCode, data, nil, RequestID(c)))
}

// SuccessWithPagination writes a JSON success response including pagination metadata.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	c.JSON(statusCode, NewSuccess(statusCode, data, pagination, RequestID(c)))
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	status, payload := NewError(err, RequestID(c))
	c.JSON(status, payload)
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, payload := NewError(err, RequestID(c))
	c.AbortWithStatusJSON(status, payload)
}

// RequestID returns the id assigned to the current request, if any.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(RequestIDKey)
}

// NewRequestID generates a fresh request identifier.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

func ensureRequestID(id string) string {
	if id == "" {
		return NewRequestID()
	}
	return id
}
