package cache

import (
	"context"
	"time"
)

// Scoped returns a Store that prefixes every key with namespace (for example "SCREWS:"),
// so clearing one resource never touches another.
func Scoped(store Store, namespace string) Store {
	if store == nil {
		return nil
	}
	return &scopedStore{inner: store, namespace: namespace}
}

type scopedStore struct {
	inner     Store
	namespace string
}

func (s *scopedStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	return s.inner.Get(ctx, s.namespace+key)
}

func (s *scopedStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	return s.inner.Set(ctx, s.namespace+key, entry, ttl)
}

func (s *scopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.namespace+key)
}

func (s *scopedStore) Clear(ctx context.Context, pattern string) error {
	return s.inner.Clear(ctx, s.namespace+pattern)
}
