package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RowFetcher loads a backing row. A missing row is reported as (nil, nil).
type RowFetcher interface {
	FetchRow(ctx context.Context, rowID string) (*model.Row, error)
}

// RowCache republishes JSON snapshots of backing rows on a per-row schedule.
//
// Only the earliest due row is handled per iteration, so a dense schedule
// falls behind instead of being processed in batches.
type RowCache struct {
	redis        *redis.Client
	rows         RowFetcher
	pollInterval time.Duration
	now          func() time.Time
	log          *logrus.Entry
}

// NewRowCache creates a row cache that polls every pollInterval when idle.
func NewRowCache(redisClient *redis.Client, rows RowFetcher, pollInterval time.Duration, log logrus.FieldLogger) *RowCache {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &RowCache{
		redis:        redisClient,
		rows:         rows,
		pollInterval: pollInterval,
		now:          time.Now,
		log:          logger.Component(log, "rowcache"),
	}
}

// Schedule sets the refresh delay of rowID and makes it due immediately. A
// delay of zero or less removes the row and its snapshot on the next pass.
func (c *RowCache) Schedule(ctx context.Context, rowID string, delay time.Duration) error {
	pipe := c.redis.Pipeline()
	pipe.ZAdd(ctx, keys.Delay, redis.Z{Score: delay.Seconds(), Member: rowID})
	pipe.ZAdd(ctx, keys.Schedule, redis.Z{Score: unixSeconds(c.now()), Member: rowID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule row: %w", err)
	}
	return nil
}

// Cached returns the current snapshot of rowID, or nil if none is cached.
func (c *RowCache) Cached(ctx context.Context, rowID string) ([]byte, error) {
	data, err := c.redis.Get(ctx, keys.Row(rowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached row: %w", err)
	}
	return data, nil
}

// Pending returns the number of scheduled rows.
func (c *RowCache) Pending(ctx context.Context) (int64, error) {
	return c.redis.ZCard(ctx, keys.Schedule).Result()
}

// Run refreshes due rows until ctx is cancelled.
func (c *RowCache) Run(ctx context.Context) error {
	c.log.WithField("poll", c.pollInterval).Info("started")

	for {
		if ctx.Err() != nil {
			break
		}

		worked, err := c.RefreshNext(ctx)
		if err != nil {
			c.log.WithError(err).Warn("refresh failed")
		}
		if err != nil || !worked {
			if !sleep(ctx, c.pollInterval) {
				break
			}
		}
	}

	c.log.Info("stopped")
	return nil
}

// RefreshNext handles the earliest scheduled row if it is due. It reports
// whether a row was handled.
func (c *RowCache) RefreshNext(ctx context.Context) (bool, error) {
	next, err := c.redis.ZRangeWithScores(ctx, keys.Schedule, 0, 0).Result()
	if err != nil {
		return false, err
	}
	now := c.now()
	if len(next) == 0 || next[0].Score > unixSeconds(now) {
		return false, nil
	}
	rowID, _ := next[0].Member.(string)

	delay, err := c.redis.ZScore(ctx, keys.Delay, rowID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	if delay <= 0 {
		return true, c.uncache(ctx, rowID)
	}

	row, err := c.rows.FetchRow(ctx, rowID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch row %s: %w", rowID, err)
	}
	if row == nil {
		c.log.WithField("row", rowID).Warn("row no longer exists, uncaching")
		return true, c.uncache(ctx, rowID)
	}

	payload, err := json.Marshal(model.RowSnapshot{Fields: row.Fields(), Cached: unixSeconds(now)})
	if err != nil {
		return false, fmt.Errorf("failed to serialize row %s: %w", rowID, err)
	}

	pipe := c.redis.Pipeline()
	pipe.ZAdd(ctx, keys.Schedule, redis.Z{Score: unixSeconds(now) + delay, Member: rowID})
	pipe.Set(ctx, keys.Row(rowID), payload, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RowCache) uncache(ctx context.Context, rowID string) error {
	pipe := c.redis.Pipeline()
	pipe.ZRem(ctx, keys.Delay, rowID)
	pipe.ZRem(ctx, keys.Schedule, rowID)
	pipe.Del(ctx, keys.Row(rowID))
	_, err := pipe.Exec(ctx)
	return err
}
