package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/screwcat/pkg/errors"
	"github.com/charlesng35/screwcat/pkg/logger"
	"github.com/charlesng35/screwcat/pkg/response"
)

// Recovery converts panics into a 500 envelope and logs the error.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithModule("http").Error("panic",
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", response.RequestID(c)),
					zap.Any("error", r),
					zap.Stack("stack"),
				)
				// Avoid leaking internals to clients
				response.Abort(c, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}

// NotFoundHandler renders a not_found envelope for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.NewNotFound(fmt.Sprintf("Route %s not found", c.Request.URL.Path)))
}

// MethodNotAllowedHandler renders a method_not_allowed envelope.
func MethodNotAllowedHandler(c *gin.Context) {
	response.Error(c, apperrors.ErrMethodNotAllowed.WithMessage(
		fmt.Sprintf("Method %s not allowed on %s", c.Request.Method, c.Request.URL.Path),
	))
}
