package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext ties service calls to the client's request so a dropped connection cancels
// in-flight queries. Handlers exercised without a request fall back to Background.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
