package app

import (
	"strings"
	"time"

	"github.com/charlesng35/screwcat/internal/cache"
	"github.com/charlesng35/screwcat/internal/database"
	"github.com/charlesng35/screwcat/internal/middleware"
	"github.com/charlesng35/screwcat/internal/services"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		URL:       strings.TrimSpace(c.Redis.URL),
		Token:     strings.TrimSpace(c.Redis.Token),
		Address:   strings.TrimSpace(c.Redis.Address),
		Username:  strings.TrimSpace(c.Redis.Username),
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		TLS:       c.Redis.TLS,
		Timeout:   c.Redis.Timeout,
		Namespace: c.Namespace,
		MaxBytes:  c.MaxEntryBytes,
	}
}

// Codec returns the entry codec bounded by max_entry_bytes.
func (c CacheConfig) Codec() cache.Codec {
	return cache.Codec{MaxBytes: c.MaxEntryBytes}
}

// MiddlewareOptions builds response cache options for one namespace. A zero ttl uses cache.ttl.
func (c CacheConfig) MiddlewareOptions(namespace string, ttl time.Duration) middleware.CacheOptions {
	if ttl <= 0 {
		ttl = c.TTL
	}
	return middleware.CacheOptions{
		Namespace:    namespace,
		TTL:          ttl,
		Methods:      append([]string(nil), c.Methods...),
		VaryHeaders:  append([]string(nil), c.VaryHeaders...),
		CacheControl: c.CacheControl,
	}
}

// ReconcilerOptions converts the import section into import service limits.
func (c ImportConfig) ReconcilerOptions() services.ImportOptions {
	return services.ImportOptions{
		HeaderRow:       c.HeaderRow,
		MaxRowsPerSheet: c.MaxRowsPerSheet,
		BatchSize:       c.BatchSize,
	}
}

// MaxUploadBytes is the multipart body limit for spreadsheet uploads.
func (c ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// DatabaseOptions converts the database section into connection options.
func (c DatabaseConfig) DatabaseOptions() database.Config {
	return database.Config{
		Driver:             c.Driver,
		Path:               c.Path,
		DSN:                strings.TrimSpace(c.DSN),
		Host:               c.Host,
		Port:               c.Port,
		Name:               c.Name,
		User:               c.User,
		Password:           c.Password,
		SlowQueryThreshold: c.SlowQuery,
		LogQueries:         c.LogQueries,
		MaxOpenConns:       c.MaxOpenConns,
		MaxIdleConns:       c.MaxIdleConns,
		ConnMaxLifetime:    c.ConnMaxLifetime,
	}
}
