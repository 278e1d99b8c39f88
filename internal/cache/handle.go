package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/screwcat/pkg/logger"
)

const defaultRetryInterval = 30 * time.Second

// Factory builds the process-wide store on first use.
type Factory func(ctx context.Context) (Store, error)

// Handle lazily constructs one Store per process and shares it between the cache middleware and
// the invalidators. A failed construction is retried after RetryInterval instead of on every
// request. The factory runs without the lock held; callers arriving while it runs get
// ErrUnavailable instead of waiting on the dial.
type Handle struct {
	factory       Factory
	retryInterval time.Duration
	now           func() time.Time

	mu           sync.Mutex
	store        Store
	constructing bool
	lastErr      error
	lastTryAt    time.Time
}

// HandleOption customises a Handle.
type HandleOption func(*Handle)

// WithRetryInterval overrides how long a failed construction is remembered.
func WithRetryInterval(d time.Duration) HandleOption {
	return func(h *Handle) {
		if d >= 0 {
			h.retryInterval = d
		}
	}
}

// NewHandle returns a handle that calls factory on first use.
func NewHandle(factory Factory, opts ...HandleOption) *Handle {
	h := &Handle{
		factory:       factory,
		retryInterval: defaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StaticHandle wraps an already constructed store.
func StaticHandle(store Store) *Handle {
	return &Handle{store: store, now: time.Now}
}

// Store returns the shared store, constructing it if needed.
func (h *Handle) Store(ctx context.Context) (Store, error) {
	if h == nil {
		return nil, ErrUnavailable
	}

	h.mu.Lock()
	switch {
	case h.store != nil:
		store := h.store
		h.mu.Unlock()
		return store, nil
	case h.factory == nil:
		h.mu.Unlock()
		return nil, ErrUnavailable
	case h.constructing:
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: store is being constructed", ErrUnavailable)
	case h.lastErr != nil && h.now().Sub(h.lastTryAt) < h.retryInterval:
		err := h.lastErr
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	h.constructing = true
	h.lastTryAt = h.now()
	h.mu.Unlock()

	store, err := h.build(ensuredContext(ctx))

	h.mu.Lock()
	defer h.mu.Unlock()
	h.constructing = false
	if err != nil {
		h.lastErr = err
		logger.WithModule("cache").Warn("cache store unavailable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	h.store = store
	h.lastErr = nil
	return store, nil
}

func (h *Handle) build(ctx context.Context) (store Store, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			store, err = nil, fmt.Errorf("factory panicked: %v", rec)
		}
	}()
	store, err = h.factory(ctx)
	if err == nil && store == nil {
		err = errors.New("factory returned nil store")
	}
	return store, err
}

// Scoped returns a store view limited to namespace, constructing the shared store if needed.
func (h *Handle) Scoped(ctx context.Context, namespace string) (Store, error) {
	store, err := h.Store(ctx)
	if err != nil {
		return nil, err
	}
	return Scoped(store, namespace), nil
}

// Ping checks the backing store when it supports it. An unconstructed store is built first.
func (h *Handle) Ping(ctx context.Context) error {
	store, err := h.Store(ctx)
	if err != nil {
		return err
	}
	if pinger, ok := store.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// Close releases the store if it was constructed and holds resources.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if closer, ok := h.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
