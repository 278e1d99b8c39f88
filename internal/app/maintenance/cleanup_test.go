package maintenance

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/screwcat/internal/cache"
	testutil "github.com/charlesng35/screwcat/internal/database/testutil"
	"github.com/charlesng35/screwcat/internal/models"
	"github.com/charlesng35/screwcat/internal/monitoring"
)

func TestCleanerRunOnceSweepsExpiredEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db, "t:", cache.Codec{})

	ctx := context.Background()
	entry := cache.NewEntry(http.StatusOK, nil, []byte(`{}`))
	require.NoError(t, store.Set(ctx, "short", entry, time.Millisecond))
	require.NoError(t, store.Set(ctx, "long", entry, time.Hour))

	clock := fixedClock{current: time.Now().Add(time.Minute)}
	c := NewCleaner(store,
		WithNow(clock.Now),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.True(t, c.Enabled())
	require.NoError(t, c.RunOnce(ctx))

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Pluck("key", &keys).Error)
	require.Equal(t, []string{"t:long"}, keys)
}

type failingSweeper struct{}

func (failingSweeper) Sweep(context.Context, time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestCleanerRecordsFailures(t *testing.T) {
	module, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	monitoring.SetModule(module)

	c := NewCleaner(failingSweeper{})
	require.ErrorContains(t, c.RunOnce(context.Background()), "database is locked")

	summary := module.Summary()
	require.Len(t, summary.Maintenance.Jobs, 1)
	require.Equal(t, JobCacheSweep, summary.Maintenance.Jobs[0].Job)
	require.Equal(t, uint64(1), summary.Maintenance.Jobs[0].ConsecutiveFailures)
}

func TestCleanerWithoutSweeperIsDisabled(t *testing.T) {
	c := NewCleaner(nil)
	require.False(t, c.Enabled())
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	<-c.Stop().Done()
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(failingSweeper{}, WithSweepSchedule("every tuesday"))
	require.Error(t, c.Start())
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
