package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ViewRankConfig holds configuration for the popularity ranking.
type ViewRankConfig struct {
	// Interval between rescale passes. Default: 5 seconds
	Interval time.Duration

	// MaxTracked is how many items survive truncation. Default: 20000
	MaxTracked int64

	// CacheableRank is the rank below which an item's pages are cached.
	// Default: 10000
	CacheableRank int64

	// Decay multiplies every score on each pass. Default: 0.5
	Decay float64
}

// DefaultViewRankConfig returns default ranking configuration.
func DefaultViewRankConfig() ViewRankConfig {
	return ViewRankConfig{
		Interval:      5 * time.Second,
		MaxTracked:    20000,
		CacheableRank: 10000,
		Decay:         0.5,
	}
}

// ViewRank maintains the global ranking of viewed items. Views are recorded
// by SessionService.Touch as score decrements, so the most viewed item has
// rank 0.
type ViewRank struct {
	redis  *redis.Client
	config ViewRankConfig
	log    *logrus.Entry
}

// NewViewRank creates a view ranking.
func NewViewRank(redisClient *redis.Client, config ViewRankConfig, log logrus.FieldLogger) *ViewRank {
	def := DefaultViewRankConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.MaxTracked <= 0 {
		config.MaxTracked = def.MaxTracked
	}
	if config.CacheableRank <= 0 {
		config.CacheableRank = def.CacheableRank
	}
	if config.Decay <= 0 || config.Decay > 1 {
		config.Decay = def.Decay
	}
	return &ViewRank{
		redis:  redisClient,
		config: config,
		log:    logger.Component(log, "viewrank"),
	}
}

// Run rescales the ranking every interval until ctx is cancelled.
func (v *ViewRank) Run(ctx context.Context) error {
	v.log.WithFields(logrus.Fields{
		"interval": v.config.Interval, "max": v.config.MaxTracked,
	}).Info("started")

	for {
		if ctx.Err() != nil {
			break
		}
		if err := v.Rescale(ctx); err != nil {
			v.log.WithError(err).Warn("rescale failed")
		}
		if !sleep(ctx, v.config.Interval) {
			break
		}
	}

	v.log.Info("stopped")
	return nil
}

// Rescale drops everything outside the most viewed MaxTracked items and
// decays the remaining scores.
func (v *ViewRank) Rescale(ctx context.Context) error {
	if err := v.redis.ZRemRangeByRank(ctx, keys.Viewed, v.config.MaxTracked, -1).Err(); err != nil {
		return fmt.Errorf("failed to truncate ranking: %w", err)
	}
	err := v.redis.ZInterStore(ctx, keys.Viewed, &redis.ZStore{
		Keys:    []string{keys.Viewed},
		Weights: []float64{v.config.Decay},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to decay ranking: %w", err)
	}
	return nil
}

// Rank returns the item's position in the ranking, or -1 if untracked.
func (v *ViewRank) Rank(ctx context.Context, itemID string) (int64, error) {
	rank, err := v.redis.ZRank(ctx, keys.Viewed, itemID).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rank: %w", err)
	}
	return rank, nil
}

// Top returns the n most viewed items.
func (v *ViewRank) Top(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	return v.redis.ZRange(ctx, keys.Viewed, 0, n-1).Result()
}

// IsCacheable reports whether the response to request may be cached: it must
// name an item, must not carry the "_" volatility parameter, and the item
// must be among the CacheableRank most viewed.
func (v *ViewRank) IsCacheable(ctx context.Context, request string) (bool, error) {
	itemID, dynamic := parseItemRequest(request)
	if itemID == "" || dynamic {
		return false, nil
	}

	rank, err := v.Rank(ctx, itemID)
	if err != nil {
		return false, err
	}
	return rank >= 0 && rank < v.config.CacheableRank, nil
}

// parseItemRequest extracts the item id and the dynamic flag from a request URL.
func parseItemRequest(request string) (string, bool) {
	u, err := url.Parse(request)
	if err != nil {
		return "", false
	}
	query := u.Query()
	_, dynamic := query["_"]
	return query.Get("item"), dynamic
}
