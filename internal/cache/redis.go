package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/charlesng35/screwcat/pkg/logger"
)

const (
	defaultRedisTimeout = 5 * time.Second
	defaultNamespace    = "screwcat:"
	scanBatchSize       = 500
)

// RedisConfig captures connection parameters for the go-redis backed store.
// URL takes precedence over Address; Token is used as the password when the URL carries none.
type RedisConfig struct {
	URL       string
	Token     string
	Address   string
	Username  string
	Password  string
	DB        int
	TLS       bool
	Timeout   time.Duration
	Namespace string
	MaxBytes  int
}

// Options converts the configuration into go-redis client options.
func (c RedisConfig) Options() (*goredis.Options, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	var opts *goredis.Options
	switch rawURL := strings.TrimSpace(c.URL); {
	case rawURL != "":
		parsed, err := parseRedisURL(rawURL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	case strings.TrimSpace(c.Address) != "":
		opts = &goredis.Options{
			Addr:     strings.TrimSpace(c.Address),
			Username: c.Username,
			Password: c.Password,
			DB:       c.DB,
		}
		if c.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	default:
		return nil, errors.New("redis: url or address is required")
	}

	if opts.Password == "" {
		opts.Password = c.Token
	}
	if opts.Password == "" {
		opts.Password = c.Password
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	return opts, nil
}

// parseRedisURL accepts redis:// and rediss:// URLs as well as the https:// REST endpoint of
// hosted providers, which expose the same host over TLS on the default port.
func parseRedisURL(raw string) (*goredis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		host := u.Hostname()
		if host == "" {
			return nil, fmt.Errorf("redis: url %q has no host", raw)
		}
		return &goredis.Options{
			Addr:      host + ":6379",
			Username:  "default",
			TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
		}, nil
	default:
		opts, err := goredis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		return opts, nil
	}
}

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	rdb         goredis.UniversalClient
	namespace   string
	codec       Codec
	closeClient bool
	log         *zap.Logger
}

// NewRedisStore dials redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	client := goredis.NewClient(opts)
	store := NewRedisStoreFromClient(client, cfg.Namespace, Codec{MaxBytes: cfg.MaxBytes})
	store.closeClient = true

	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client. The store does not close it.
func NewRedisStoreFromClient(client goredis.UniversalClient, namespace string, codec Codec) *RedisStore {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &RedisStore{
		rdb:       client,
		namespace: namespace,
		codec:     codec,
		log:       logger.WithModule("cache"),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := s.rdb.Get(ensuredContext(ctx), s.namespace+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s.codec.Decode(raw)
}

func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	raw, err := s.codec.Encode(entry)
	if err != nil {
		return err
	}
	return s.rdb.Set(ensuredContext(ctx), s.namespace+key, raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ensuredContext(ctx), s.namespace+key).Err()
}

// Clear scans for namespace+pattern* and deletes the matches with a single DEL.
func (s *RedisStore) Clear(ctx context.Context, pattern string) error {
	ctx = ensuredContext(ctx)
	prefix := s.namespace + pattern
	match := escapeGlob(prefix) + "*"

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return s.invalidationFailed(prefix, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return s.invalidationFailed(prefix, err)
	}
	s.log.Debug("cache cleared", zap.String("prefix", prefix), zap.Int("keys", len(keys)))
	return nil
}

func (s *RedisStore) invalidationFailed(prefix string, err error) error {
	s.log.Error("cache clear failed", zap.String("prefix", prefix), zap.Error(err))
	return &InvalidationError{Prefix: prefix, Err: err}
}

// Increment bumps a fixed-window counter, starting the window on the first hit.
// It returns the count and the time left in the window.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx = ensuredContext(ctx)
	if window <= 0 {
		return 0, 0, ErrInvalidTTL
	}
	full := s.namespace + key

	count, err := s.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.rdb.PExpire(ctx, full, window).Err(); err != nil {
			return count, 0, err
		}
		return count, window, nil
	}

	ttl, err := s.rdb.PTTL(ctx, full).Result()
	if err != nil {
		return count, 0, err
	}
	if ttl < 0 {
		// counter lost its expiry; restart the window
		if err := s.rdb.PExpire(ctx, full, window).Err(); err != nil {
			return count, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ensuredContext(ctx)).Err()
}

// Close releases the client when the store created it.
func (s *RedisStore) Close() error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

// escapeGlob quotes the characters redis treats as glob syntax; request URLs routinely contain '?'.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
