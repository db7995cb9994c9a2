package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(10000000), cfg.Session.Limit)
	assert.Equal(t, time.Second, cfg.Session.ReaperInterval)
	assert.Equal(t, int64(25), cfg.Session.HistorySize)
	assert.Equal(t, int64(20000), cfg.Rank.MaxTracked)
	assert.Equal(t, int64(10000), cfg.Rank.CacheableRank)
	assert.Equal(t, 0.5, cfg.Rank.Decay)
	assert.Equal(t, 50*time.Millisecond, cfg.RowCache.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Market.ListTimeout)
	assert.Equal(t, 10*time.Second, cfg.Market.PurchaseTimeout)
	assert.Equal(t, 300*time.Second, cfg.RequestCache.TTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_LIMIT", "0")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("BACKING_DB_TYPE", "mysql")
	t.Setenv("BACKING_DB_PORT", "3306")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(0), cfg.Session.Limit)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Address())
	assert.Equal(t, "postgres:@tcp(localhost:3306)/storefront?parseTime=true", cfg.BackingDB.MySQLDSN())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("RANK_RESCALE_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
