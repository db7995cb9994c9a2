package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/service"
	"storefront-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGate struct {
	ok  bool
	err error
}

func (g staticGate) IsCacheable(ctx context.Context, request string) (bool, error) {
	return g.ok, g.err
}

func TestRequestCacheServesHitsWithoutCompute(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	ctx := context.Background()
	sessions := service.NewSessionService(client, service.DefaultHistorySize)
	rank := service.NewViewRank(client, service.DefaultViewRankConfig(), testutil.Logger())
	rc := NewRequestCache(NewRedisCache(client), rank, 0, testutil.Logger())

	require.NoError(t, sessions.Touch(ctx, "tok", "username", "itemX"))

	url := "http://test.com/?item=itemX"
	first, err := rc.Get(ctx, url, func(ctx context.Context, request string) ([]byte, error) {
		return []byte("content for " + request), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "content for "+url, string(first))

	second, err := rc.Get(ctx, url, func(ctx context.Context, request string) ([]byte, error) {
		return nil, errors.New("must not be called")
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, DefaultRequestTTL, mr.TTL(keys.Page(HashRequest(url))))
}

func TestRequestCacheBypassesUncacheable(t *testing.T) {
	rc := NewRequestCache(NewMemoryCache(time.Hour), staticGate{ok: false}, time.Minute, testutil.Logger())
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context, request string) ([]byte, error) {
		calls++
		return []byte{byte(calls)}, nil
	}

	a, err := rc.Get(ctx, "http://test.com/?item=x&_=1", compute)
	require.NoError(t, err)
	b, err := rc.Get(ctx, "http://test.com/?item=x&_=1", compute)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.NotEqual(t, a, b)
}

func TestRequestCacheDoesNotStoreFailures(t *testing.T) {
	store := NewMemoryCache(time.Hour)
	rc := NewRequestCache(store, staticGate{ok: true}, time.Minute, testutil.Logger())
	ctx := context.Background()

	_, err := rc.Get(ctx, "http://test.com/?item=x", func(ctx context.Context, request string) ([]byte, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestRequestCacheGateError(t *testing.T) {
	gateErr := errors.New("store unavailable")
	rc := NewRequestCache(NewMemoryCache(time.Hour), staticGate{err: gateErr}, time.Minute, testutil.Logger())

	_, err := rc.Get(context.Background(), "http://test.com/?item=x", func(ctx context.Context, request string) ([]byte, error) {
		t.Fatal("compute called")
		return nil, nil
	})
	assert.ErrorIs(t, err, gateErr)
}

func TestHashRequestCanonical(t *testing.T) {
	assert.Equal(t,
		HashRequest("HTTP://Test.com/page?item=x&b=2&a=1"),
		HashRequest("http://test.com/page?a=1&b=2&item=x"))
	assert.NotEqual(t,
		HashRequest("http://test.com/page?item=x"),
		HashRequest("http://test.com/page?item=y"))
}
