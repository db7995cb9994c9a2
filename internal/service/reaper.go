package service

import (
	"context"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ReaperConfig holds configuration for the session reaper.
type ReaperConfig struct {
	// Limit is the number of sessions kept. Default: 10,000,000
	Limit int64

	// Interval is how long the reaper sleeps when under the limit.
	// Default: 1 second
	Interval time.Duration

	// BatchSize is the maximum number of sessions evicted per pass.
	// Default: 100
	BatchSize int64
}

// DefaultReaperConfig returns default reaper configuration.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Limit:     10_000_000,
		Interval:  time.Second,
		BatchSize: 100,
	}
}

// Reaper evicts the least recently touched sessions while the registry is
// over its limit.
type Reaper struct {
	redis  *redis.Client
	config ReaperConfig
	log    *logrus.Entry
}

// NewReaper creates a new session reaper. A negative limit is treated as 0.
func NewReaper(redisClient *redis.Client, config ReaperConfig, log logrus.FieldLogger) *Reaper {
	if config.Limit < 0 {
		config.Limit = 0
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Reaper{
		redis:  redisClient,
		config: config,
		log:    logger.Component(log, "reaper"),
	}
}

// Run reaps until ctx is cancelled. The context is checked between passes,
// never in the middle of one.
func (r *Reaper) Run(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"limit": r.config.Limit, "interval": r.config.Interval,
	}).Info("started")

	for {
		if ctx.Err() != nil {
			r.log.Info("stopped")
			return nil
		}

		reaped, err := r.ReapOnce(ctx)
		if err != nil {
			r.log.WithError(err).Warn("reap failed")
		}
		if err != nil || reaped == 0 {
			if !sleep(ctx, r.config.Interval) {
				r.log.Info("stopped")
				return nil
			}
		}
	}
}

// ReapOnce evicts one batch of the oldest sessions if the registry is over
// its limit and returns how many were evicted.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	size, err := r.redis.ZCard(ctx, keys.Recent).Result()
	if err != nil {
		return 0, err
	}
	if size <= r.config.Limit {
		return 0, nil
	}

	end := min(size-r.config.Limit, r.config.BatchSize)
	tokens, err := r.redis.ZRange(ctx, keys.Recent, 0, end-1).Result()
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	sessionKeys := make([]string, 0, 2*len(tokens))
	members := make([]interface{}, len(tokens))
	for i, token := range tokens {
		sessionKeys = append(sessionKeys, keys.History(token), keys.Cart(token))
		members[i] = token
	}

	if err := r.redis.Del(ctx, sessionKeys...).Err(); err != nil {
		return 0, err
	}
	if err := r.redis.HDel(ctx, keys.Login, tokens...).Err(); err != nil {
		return 0, err
	}
	if err := r.redis.ZRem(ctx, keys.Recent, members...).Err(); err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{"reaped": len(tokens), "size": size}).Debug("reaped sessions")
	return len(tokens), nil
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
