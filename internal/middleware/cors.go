package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSOptions lists the origins allowed to call the API. An empty list allows any origin.
type CORSOptions struct {
	AllowedOrigins []string
}

// CORS answers browser preflights for the catalog routes. Requests from an origin outside
// the allow list are rejected with 403.
func CORS(opts CORSOptions) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept-Language", HeaderRequestID}
	config.ExposeHeaders = []string{HeaderCache, HeaderRequestID, "X-Cache-Invalidation"}
	config.MaxAge = 12 * time.Hour

	origins := make([]string, 0, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			origins = nil
			break
		}
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}

	return cors.New(config)
}
