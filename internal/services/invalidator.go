package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/screwcat/internal/cache"
	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/pkg/logger"
)

// Cache namespaces shared by the read routes and the write paths that invalidate them.
const (
	NamespaceFastenerList = "SCREWS:"
	NamespaceFastener     = "SCREW:"
	NamespaceTypes        = "SCREW_TYPES:"
	NamespaceMaterials    = "SCREW_MATERIALS:"
)

// FastenerNamespace is the per-record namespace holding every cached read of one fastener.
func FastenerNamespace(id uint) string {
	return NamespaceFastener + strconv.FormatUint(uint64(id), 10) + ":"
}

// Invalidator clears cached fastener reads after a committed write.
type Invalidator struct {
	handle *cache.Handle
	log    *zap.Logger
}

// NewInvalidator returns nil when handle is nil, which disables invalidation.
func NewInvalidator(handle *cache.Handle) *Invalidator {
	if handle == nil {
		return nil
	}
	return &Invalidator{handle: handle, log: logger.WithModule("cache")}
}

// Fastener clears the list namespace and, when id is non-zero, the fastener's own namespace.
// Both clears run concurrently and both finish before it returns.
func (i *Invalidator) Fastener(ctx context.Context, id uint) error {
	if i == nil {
		return nil
	}
	ctx = ensuredContext(ctx)

	store, err := i.handle.Store(ctx)
	if err != nil {
		monitoring.RecordCacheInvalidation(NamespaceFastenerList, err)
		return fmt.Errorf("%w: %w", cache.ErrInvalidation, err)
	}

	namespaces := []string{NamespaceFastenerList}
	if id != 0 {
		namespaces = append(namespaces, FastenerNamespace(id))
	}

	errs := make([]error, len(namespaces))
	var g errgroup.Group
	for idx, ns := range namespaces {
		g.Go(func() error {
			err := cache.Scoped(store, ns).Clear(ctx, "")
			monitoring.RecordCacheInvalidation(ns, err)
			errs[idx] = err
			return nil
		})
	}
	_ = g.Wait()

	combined := multierr.Combine(errs...)
	if combined != nil {
		i.log.Warn("cache invalidation failed",
			zap.Uint("fastener_id", id),
			zap.Strings("namespaces", namespaces),
			zap.Error(combined),
		)
	}
	return combined
}
