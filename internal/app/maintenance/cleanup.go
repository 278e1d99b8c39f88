package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/screwcat/internal/monitoring"
	"github.com/charlesng35/screwcat/pkg/logger"
)

const (
	defaultSweepSpec = "@every 15m"

	// JobCacheSweep names the expired cache row sweep in metrics and health output.
	JobCacheSweep = "cache_sweep"
)

// Sweeper removes expired entries from a store and reports how many were dropped.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner schedules background maintenance, currently the sweep of expired rows held by the
// database-backed cache store.
type Cleaner struct {
	sweeper Sweeper
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger

	sweepSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to decide expiry.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSweepSchedule overrides the cron specification for the cache sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil sweeper disables the cache sweep, which is the case
// whenever redis serves the cache.
func NewCleaner(sweeper Sweeper, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sweeper:       sweeper,
		now:           time.Now,
		sweepSchedule: defaultSweepSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Enabled reports whether any job would be scheduled.
func (c *Cleaner) Enabled() bool {
	return c != nil && c.sweeper != nil
}

// Start registers the jobs and launches the scheduler when at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.Enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
		if err := c.sweep(context.Background()); err != nil {
			c.log.Warn("cache sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c == nil || c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every enabled job sequentially. Used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.Enabled() {
		errs = multierr.Append(errs, c.sweep(ctx))
	}
	return errs
}

func (c *Cleaner) sweep(ctx context.Context) error {
	start := c.now()
	removed, err := c.sweeper.Sweep(ctx, start)
	duration := c.now().Sub(start)

	if err != nil {
		monitoring.RecordMaintenanceRun(JobCacheSweep, "error", err.Error(), duration)
		return err
	}
	monitoring.RecordMaintenanceRun(JobCacheSweep, "success", "", duration)
	if removed > 0 {
		c.log.Info("expired cache entries removed", zap.Int64("count", removed))
	}
	return nil
}
