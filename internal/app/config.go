package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the screwcat API.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Import      ImportConfig      `mapstructure:"import"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	Mode          string        `mapstructure:"mode"`
	BasePath      string        `mapstructure:"base_path"`
	SlowRequest   time.Duration `mapstructure:"slow_request"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	CORS          CORSConfig    `mapstructure:"cors"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
	LogQueries      bool          `mapstructure:"log_queries"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig controls the response cache and its backends.
type CacheConfig struct {
	Enabled            bool             `mapstructure:"enabled"`
	Namespace          string           `mapstructure:"namespace"`
	TTL                time.Duration    `mapstructure:"ttl"`
	ReferenceTTL       time.Duration    `mapstructure:"reference_ttl"`
	Methods            []string         `mapstructure:"methods"`
	VaryHeaders        []string         `mapstructure:"vary_headers"`
	CacheControl       string           `mapstructure:"cache_control"`
	MaxEntryBytes      int              `mapstructure:"max_entry_bytes"`
	StrictInvalidation bool             `mapstructure:"strict_invalidation"`
	RetryInterval      time.Duration    `mapstructure:"retry_interval"`
	Redis              RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options. URL wins over Address.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Token    string        `mapstructure:"token"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ImportConfig bounds spreadsheet uploads.
type ImportConfig struct {
	MaxUploadMB     int             `mapstructure:"max_upload_mb"`
	HeaderRow       int             `mapstructure:"header_row"`
	MaxRowsPerSheet int             `mapstructure:"max_rows_per_sheet"`
	BatchSize       int             `mapstructure:"batch_size"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles a route per client IP.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	CacheSweep string `mapstructure:"cache_sweep"`
}

// Environment variables honoured without the SCREWCAT_ prefix.
var envAliases = map[string]string{
	"database.dsn":      "DATABASE_URL",
	"cache.redis.url":   "REDIS_URL",
	"cache.redis.token": "REDIS_TOKEN",
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SCREWCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		envKey := "SCREWCAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if config.Cache.Redis.URL != "" {
		config.Cache.Redis.Enabled = true
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("config: cache.ttl must be positive")
	}
	if c.Cache.ReferenceTTL <= 0 {
		return errors.New("config: cache.reference_ttl must be positive")
	}
	if c.Import.MaxUploadMB <= 0 {
		return errors.New("config: import.max_upload_mb must be positive")
	}
	for _, origin := range c.Server.CORS.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("config: server.cors.allowed_origins entry %q needs an http(s) scheme", origin)
		}
	}
	return nil
}

// DefaultConfig returns the built-in defaults without consulting files or the environment.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.slow_request", "1s")
	v.SetDefault("server.shutdown_grace", "10s")
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "")
	v.SetDefault("database.path", "./data/screwcat.sqlite")
	v.SetDefault("database.slow_query", "1s")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.namespace", "screwcat:")
	v.SetDefault("cache.ttl", "300s")
	v.SetDefault("cache.reference_ttl", "3600s")
	v.SetDefault("cache.methods", []string{"GET"})
	v.SetDefault("cache.vary_headers", []string{"Accept-Language"})
	v.SetDefault("cache.cache_control", "")
	v.SetDefault("cache.max_entry_bytes", 1<<20)
	v.SetDefault("cache.strict_invalidation", false)
	v.SetDefault("cache.retry_interval", "30s")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("import.max_upload_mb", 10)
	v.SetDefault("import.header_row", 8)
	v.SetDefault("import.max_rows_per_sheet", 1000)
	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.rate_limit.enabled", true)
	v.SetDefault("import.rate_limit.requests", 10)
	v.SetDefault("import.rate_limit.window", "1m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.cache_sweep", "@every 15m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
