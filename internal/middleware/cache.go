package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/screwcat/internal/cache"
	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/pkg/logger"
)

const (
	// HeaderCache marks whether a response was served from the cache.
	HeaderCache = "X-Cache"
	// CacheKeyContextKey holds the cache key of the current request.
	CacheKeyContextKey = "cache_key"
	// CacheStatusContextKey holds HIT, MISS or BYPASS for the access log.
	CacheStatusContextKey = "cache_status"

	CacheHit    = "HIT"
	CacheMiss   = "MISS"
	CacheBypass = "BYPASS"

	defaultCacheTTL = 5 * time.Minute
)

// Headers that are never stored with a cached response. CORS headers depend on the caller's
// origin and are written fresh by the CORS middleware on every request.
var uncachedHeaders = map[string]struct{}{
	"Content-Length":                   {},
	"Set-Cookie":                       {},
	"Connection":                       {},
	"Keep-Alive":                       {},
	"Vary":                             {},
	"Access-Control-Allow-Origin":      {},
	"Access-Control-Allow-Credentials": {},
	"Access-Control-Allow-Methods":     {},
	"Access-Control-Allow-Headers":     {},
	"Access-Control-Expose-Headers":    {},
	"Access-Control-Max-Age":           {},
	HeaderCache:                        {},
	HeaderRequestID:                    {},
}

// CacheOptions configures the response cache for a route group.
type CacheOptions struct {
	// Namespace prefixes every key written by this middleware, for example "SCREWS:".
	Namespace string
	// NamespaceFunc derives the namespace per request and overrides Namespace when set.
	NamespaceFunc func(c *gin.Context) string
	TTL           time.Duration
	// Methods lists the cacheable methods. Defaults to GET.
	Methods []string
	// VaryHeaders are appended to the key; a missing header contributes an empty string.
	VaryHeaders []string
	// CacheControl is sent with cacheable responses. Defaults to "public, max-age=<ttl>".
	CacheControl string
}

func (o CacheOptions) normalized() CacheOptions {
	if o.TTL <= 0 {
		o.TTL = defaultCacheTTL
	}
	if len(o.Methods) == 0 {
		o.Methods = []string{http.MethodGet}
	}
	for i, method := range o.Methods {
		o.Methods[i] = strings.ToUpper(strings.TrimSpace(method))
	}
	if strings.TrimSpace(o.CacheControl) == "" {
		o.CacheControl = "public, max-age=" + strconv.Itoa(int(o.TTL.Seconds()))
	}
	return o
}

func (o CacheOptions) cacheable(method string) bool {
	for _, m := range o.Methods {
		if m == method {
			return true
		}
	}
	return false
}

func (o CacheOptions) namespace(c *gin.Context) string {
	if o.NamespaceFunc != nil {
		return o.NamespaceFunc(c)
	}
	return o.Namespace
}

// CacheKey derives "<METHOD>:<path>?<sorted query>" plus ":<vary values>" when vary headers are set.
func CacheKey(r *http.Request, varyHeaders []string) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte(':')
	b.WriteString(r.URL.Path)
	if query := normalizeQuery(r.URL.RawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	if len(varyHeaders) > 0 {
		values := make([]string, len(varyHeaders))
		for i, header := range varyHeaders {
			values[i] = r.Header.Get(header)
		}
		b.WriteByte(':')
		b.WriteString(strings.Join(values, ":"))
	}
	return b.String()
}

func normalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	return values.Encode()
}

// Cache serves cacheable requests from the shared store and populates it on a miss.
// Only 2xx and 3xx responses are stored. When the store is unavailable the request
// passes through uncached.
func Cache(handle *cache.Handle, opts CacheOptions) gin.HandlerFunc {
	opts = opts.normalized()
	log := logger.WithModule("cache")

	return func(c *gin.Context) {
		if handle == nil || !opts.cacheable(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ns := opts.namespace(c)

		scoped, err := handle.Scoped(ctx, ns)
		if err != nil {
			monitoring.RecordCacheLookup(ns, monitoring.CacheError)
			c.Set(CacheStatusContextKey, CacheBypass)
			c.Next()
			return
		}

		key := CacheKey(c.Request, opts.VaryHeaders)
		c.Set(CacheKeyContextKey, key)

		entry, ok, err := scoped.Get(ctx, key)
		switch {
		case err != nil:
			monitoring.RecordCacheLookup(ns, monitoring.CacheError)
			log.Warn("cache lookup failed", zap.String("key", ns+key), zap.Error(err))
		case ok:
			monitoring.RecordCacheLookup(ns, monitoring.CacheHit)
			replay(c, entry, opts.CacheControl)
			return
		default:
			monitoring.RecordCacheLookup(ns, monitoring.CacheMiss)
		}

		c.Set(CacheStatusContextKey, CacheMiss)
		c.Header(HeaderCache, CacheMiss)

		writer := &capturingWriter{ResponseWriter: c.Writer, cacheControl: opts.CacheControl}
		c.Writer = writer
		c.Next()
		c.Writer = writer.ResponseWriter

		status := writer.Status()
		if !cacheableStatus(status) {
			return
		}

		stored := cache.NewEntry(status, storableHeaders(writer.Header()), writer.body.Bytes())
		err = scoped.Set(ctx, key, stored, opts.TTL)
		monitoring.RecordCacheWrite(ns, err)
		if err != nil {
			log.Warn("cache write failed", zap.String("key", ns+key), zap.Error(err))
			_ = c.Error(fmt.Errorf("cache: store %s: %w", ns+key, err))
		}
	}
}

func replay(c *gin.Context, entry *cache.Entry, cacheControl string) {
	header := c.Writer.Header()
	for name, value := range entry.Headers {
		if _, skip := uncachedHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		header.Set(name, value)
	}
	header.Set(HeaderCache, CacheHit)
	header.Set("Cache-Control", cacheControl)
	c.Set(CacheStatusContextKey, CacheHit)

	status := entry.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.Writer.WriteHeader(status)
	_, _ = c.Writer.Write(entry.Body)
	c.Abort()
}

func cacheableStatus(status int) bool {
	return status >= http.StatusOK && status < http.StatusBadRequest
}

func storableHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) == 0 {
			continue
		}
		if _, skip := uncachedHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		out[name] = values[0]
	}
	return out
}

// capturingWriter tees the response body and adds Cache-Control to cacheable responses.
type capturingWriter struct {
	gin.ResponseWriter
	body         bytes.Buffer
	cacheControl string
	prepared     bool
}

func (w *capturingWriter) prepare(status int) {
	if w.prepared {
		return
	}
	w.prepared = true
	if cacheableStatus(status) && w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", w.cacheControl)
	}
}

func (w *capturingWriter) WriteHeader(code int) {
	w.prepare(code)
	w.ResponseWriter.WriteHeader(code)
}

func (w *capturingWriter) Write(data []byte) (int, error) {
	w.prepare(w.ResponseWriter.Status())
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.prepare(w.ResponseWriter.Status())
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
