package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/minzhou/babydraw/internal/cache"
	testutil "github.com/minzhou/babydraw/internal/database/testutil"
)

func TestSweeperRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	current := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	store := cache.NewDatabaseStore(db, cache.WithNow(func() time.Time { return current }))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", "value", time.Minute))
	require.NoError(t, store.Set(ctx, "fresh", "value", time.Hour))

	current = current.Add(10 * time.Minute)

	sweeper, err := NewSweeper(store)
	require.NoError(t, err)
	require.NoError(t, sweeper.RunOnce(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Total)
	require.Equal(t, int64(0), stats.Expired)
}

func TestSweeperStartRegistersJob(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	sweeper, err := NewSweeper(store,
		WithCron(scheduler),
		WithSchedule("@every 1h"),
	)
	require.NoError(t, err)

	require.NoError(t, sweeper.Start())
	require.Len(t, scheduler.Entries(), 1)

	<-sweeper.Stop().Done()
}

func TestSweeperRequiresStore(t *testing.T) {
	_, err := NewSweeper(nil)
	require.Error(t, err)
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	sweeper, err := NewSweeper(store, WithSchedule("not-a-schedule"))
	require.NoError(t, err)
	require.Error(t, sweeper.Start())
}
