package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/model"
	"storefront-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	mu    sync.Mutex
	rows  map[string]*model.Row
	err   error
	calls int
}

func (f *fakeRows) FetchRow(ctx context.Context, rowID string) (*model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[rowID], nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRowCache(t *testing.T, rows RowFetcher) (*RowCache, *manualClock) {
	t.Helper()
	_, client := testutil.NewRedis(t)
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	c := NewRowCache(client, rows, 5*time.Millisecond, testutil.Logger())
	c.now = clock.Now
	return c, clock
}

func itemRows() *fakeRows {
	return &fakeRows{rows: map[string]*model.Row{
		"itemX": {ID: "itemX", Data: "data to cache...", UpdatedAt: time.Unix(1_600_000_000, 0)},
	}}
}

func TestRefreshScheduleLifecycle(t *testing.T) {
	c, clock := newRowCache(t, itemRows())
	ctx := context.Background()

	require.NoError(t, c.Schedule(ctx, "itemX", 5*time.Second))
	pending, err := c.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	worked, err := c.RefreshNext(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	first, err := c.Cached(ctx, "itemX")
	require.NoError(t, err)
	require.NotNil(t, first)

	var snap model.RowSnapshot
	require.NoError(t, json.Unmarshal(first, &snap))
	assert.Equal(t, "itemX", snap.Fields["id"])
	assert.Equal(t, "data to cache...", snap.Fields["data"])

	// t≈1s: not due yet, payload unchanged
	clock.Advance(time.Second)
	worked, err = c.RefreshNext(ctx)
	require.NoError(t, err)
	assert.False(t, worked)
	still, _ := c.Cached(ctx, "itemX")
	assert.Equal(t, first, still)

	// t≈6s: refreshed with a new timestamp
	clock.Advance(5 * time.Second)
	worked, err = c.RefreshNext(ctx)
	require.NoError(t, err)
	assert.True(t, worked)
	second, _ := c.Cached(ctx, "itemX")
	assert.NotEqual(t, first, second)

	// a non-positive delay uncaches on the next pass
	require.NoError(t, c.Schedule(ctx, "itemX", -time.Second))
	worked, err = c.RefreshNext(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	gone, err := c.Cached(ctx, "itemX")
	require.NoError(t, err)
	assert.Nil(t, gone)
	pending, _ = c.Pending(ctx)
	assert.Equal(t, int64(0), pending)
	assert.Equal(t, int64(0), c.redis.ZCard(ctx, keys.Delay).Val())
}

func TestRefreshMissingRowUncaches(t *testing.T) {
	c, _ := newRowCache(t, &fakeRows{rows: map[string]*model.Row{}})
	ctx := context.Background()

	require.NoError(t, c.Schedule(ctx, "ghost", time.Second))
	worked, err := c.RefreshNext(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	pending, _ := c.Pending(ctx)
	assert.Equal(t, int64(0), pending)
}

func TestRefreshFetchErrorKeepsSchedule(t *testing.T) {
	rows := itemRows()
	rows.err = errors.New("database down")
	c, _ := newRowCache(t, rows)
	ctx := context.Background()

	require.NoError(t, c.Schedule(ctx, "itemX", time.Second))
	_, err := c.RefreshNext(ctx)
	assert.Error(t, err)

	pending, _ := c.Pending(ctx)
	assert.Equal(t, int64(1), pending)
}

func TestRowCacheRun(t *testing.T) {
	rows := itemRows()
	c, _ := newRowCache(t, rows)
	c.now = time.Now
	ctx := context.Background()

	require.NoError(t, c.Schedule(ctx, "itemX", 5*time.Second))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	require.Eventually(t, func() bool {
		data, err := c.Cached(ctx, "itemX")
		return err == nil && data != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Schedule(ctx, "itemX", -1))
	require.Eventually(t, func() bool {
		data, err := c.Cached(ctx, "itemX")
		return err == nil && data == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}
