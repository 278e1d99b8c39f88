package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/screwcat/pkg/logger"
	"github.com/charlesng35/screwcat/pkg/response"
)

const defaultSlowRequestThreshold = time.Second

// Logger writes a concise structured access log for each request. Requests slower than
// slowThreshold are logged at warn level; zero selects one second.
func Logger(slowThreshold time.Duration) gin.HandlerFunc {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowRequestThreshold
	}
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", response.RequestID(c)),
		}
		if marker := c.GetString(CacheStatusContextKey); marker != "" {
			fields = append(fields, zap.String("cache", marker))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case duration >= slowThreshold:
			log.Warn("slow request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
