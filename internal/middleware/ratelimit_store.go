package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/screwcat/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore provides process-local rate limiting. It is concurrency-safe.
type memoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	clock func() time.Time
	swept time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// expired counters are dropped at most once per window
	if now.Sub(s.swept) >= window {
		for k, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, k)
			}
		}
		s.swept = now
	}

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

// cacheRateStore keeps counters in the shared cache so limits hold across instances.
// It falls back to the local store while the cache is unreachable.
type cacheRateStore struct {
	handle   *cache.Handle
	fallback RateStore
}

// NewCacheRateStore builds a RateStore on the shared cache handle.
func NewCacheRateStore(handle *cache.Handle) RateStore {
	if handle == nil {
		return NewMemoryRateStore()
	}
	return &cacheRateStore{handle: handle, fallback: NewMemoryRateStore()}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	store, err := s.handle.Store(ctx)
	if err != nil {
		return s.fallback.Increment(ctx, key, window)
	}
	counter, ok := store.(cache.Counter)
	if !ok {
		return s.fallback.Increment(ctx, key, window)
	}
	count, ttl, err := counter.Increment(ctx, "ratelimit:"+key, window)
	if err != nil {
		return s.fallback.Increment(ctx, key, window)
	}
	return int(count), ttl, nil
}
