package cache

import (
	"context"
	"testing"
	"time"

	"storefront-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	c := NewRedisCache(client)
	ctx := context.Background()

	_, err := c.Get(ctx, "cache:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "cache:abc", []byte("page"), 300*time.Second))
	got, err := c.Get(ctx, "cache:abc")
	require.NoError(t, err)
	assert.Equal(t, "page", string(got))
	assert.Equal(t, 300*time.Second, mr.TTL("cache:abc"))

	mr.FastForward(301 * time.Second)
	_, err = c.Get(ctx, "cache:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "cache:def", []byte("x"), time.Minute))
	require.NoError(t, c.Delete(ctx, "cache:def"))
	_, err = c.Get(ctx, "cache:def")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheStoreDown(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	c := NewRedisCache(client)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
