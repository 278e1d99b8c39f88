package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidation marks a failed Clear. Callers treat it as non-fatal: the data write already happened.
	ErrInvalidation = errors.New("cache: invalidation failed")
	// ErrInvalidTTL is returned by Set when the TTL is not positive.
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
	// ErrEntryTooLarge is returned when a serialized entry exceeds the configured size bound.
	ErrEntryTooLarge = errors.New("cache: entry exceeds size limit")
	// ErrUnavailable is returned when no cache store could be constructed.
	ErrUnavailable = errors.New("cache: store unavailable")
)

// Entry is a cached HTTP response. Body is base64 encoded on the wire.
type Entry struct {
	Body      []byte            `json:"body"`
	Headers   map[string]string `json:"headers"`
	Status    int               `json:"status"`
	CreatedAt int64             `json:"createdAt"` // unix milliseconds
}

// NewEntry builds an entry stamped with the current time.
func NewEntry(status int, headers map[string]string, body []byte) *Entry {
	if headers == nil {
		headers = map[string]string{}
	}
	return &Entry{
		Body:      body,
		Headers:   headers,
		Status:    status,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Store is the response cache contract. Keys passed in are relative to the store's namespace.
// A missing key is reported as (nil, false, nil), never as an error.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key starting with pattern, or the whole namespace when pattern is empty.
	// Failures are returned as an *InvalidationError.
	Clear(ctx context.Context, pattern string) error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter is implemented by stores that can keep fixed-window counters.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// InvalidationError reports which prefix could not be cleared.
type InvalidationError struct {
	Prefix string
	Err    error
}

func (e *InvalidationError) Error() string {
	return fmt.Sprintf("cache: clear %q: %v", e.Prefix, e.Err)
}

func (e *InvalidationError) Unwrap() []error {
	return []error{ErrInvalidation, e.Err}
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
