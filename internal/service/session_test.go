package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newSessions(t *testing.T) (*SessionService, *redis.Client) {
	t.Helper()
	_, client := testutil.NewRedis(t)
	s := NewSessionService(client, DefaultHistorySize)
	s.now = stepClock(time.Unix(1_700_000_000, 0), time.Second)
	return s, client
}

func TestTouchAndCheckToken(t *testing.T) {
	s, client := newSessions(t)
	ctx := context.Background()

	token := s.GenerateToken()
	assert.True(t, strings.HasPrefix(token, TokenPrefix))

	_, err := s.CheckToken(ctx, token)
	assert.ErrorIs(t, err, ErrUnknownToken)

	require.NoError(t, s.Touch(ctx, token, "username", "itemX"))

	user, err := s.CheckToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "username", user)

	assert.Equal(t, float64(-1), client.ZScore(ctx, keys.Viewed, "itemX").Val())
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTouchWithoutItemLeavesHistoryAlone(t *testing.T) {
	s, client := newSessions(t)
	ctx := context.Background()

	require.NoError(t, s.Touch(ctx, "tok", "u", ""))
	assert.Equal(t, int64(0), client.Exists(ctx, keys.History("tok")).Val())
	assert.Equal(t, int64(0), client.ZCard(ctx, keys.Viewed).Val())
}

func TestTouchRejectsEmptyToken(t *testing.T) {
	s, client := newSessions(t)
	ctx := context.Background()

	require.NoError(t, client.ZAdd(ctx, keys.Viewed, redis.Z{Score: -3, Member: "itemX"}).Err())

	err := s.Touch(ctx, "", "u", "itemY")
	assert.ErrorIs(t, err, ErrUnknownToken)

	// the global ranking shares the history prefix and must be untouched
	members, err := client.ZRangeWithScores(ctx, keys.Viewed, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "itemX", members[0].Member)
	assert.Equal(t, float64(-3), members[0].Score)
	assert.Equal(t, int64(0), client.ZCard(ctx, keys.Recent).Val())
}

func TestTouchKeepsNewestHistory(t *testing.T) {
	s, client := newSessions(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, s.Touch(ctx, "tok", "u", fmt.Sprintf("item-%02d", i)))
	}

	assert.Equal(t, int64(25), client.ZCard(ctx, keys.History("tok")).Val())

	views, err := s.History(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, views, 25)
	assert.Equal(t, "item-29", views[0].ItemID)
	assert.Equal(t, "item-05", views[24].ItemID)
	assert.True(t, views[0].ViewedAt.After(views[24].ViewedAt))
}

func TestTouchIntensifiesViewCounter(t *testing.T) {
	s, client := newSessions(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Touch(ctx, fmt.Sprintf("t%d", i), "u", "popular"))
	}
	require.NoError(t, s.Touch(ctx, "t0", "u", "niche"))

	ranked := client.ZRange(ctx, keys.Viewed, 0, -1).Val()
	assert.Equal(t, []string{"popular", "niche"}, ranked)
	assert.Equal(t, float64(-3), client.ZScore(ctx, keys.Viewed, "popular").Val())
}

func TestCart(t *testing.T) {
	s, _ := newSessions(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, "tok", "itemY", 3))
	require.NoError(t, s.AddToCart(ctx, "tok", "itemZ", 1))

	lines, err := s.Cart(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	require.NoError(t, s.AddToCart(ctx, "tok", "itemZ", 0))
	lines, err = s.Cart(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "itemY", lines[0].ItemID)
	assert.Equal(t, int64(3), lines[0].Count)
}
