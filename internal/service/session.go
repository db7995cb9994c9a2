package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/model"
	"storefront-api/pkg/uid"

	"github.com/redis/go-redis/v9"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "sst_"

	// DefaultHistorySize is how many recently viewed items a session keeps.
	DefaultHistorySize = 25
)

// ErrUnknownToken is returned for tokens absent from the registry.
var ErrUnknownToken = errors.New("unknown session token")

// SessionService maps session tokens to users and tracks what they view.
type SessionService struct {
	redis       *redis.Client
	historySize int64
	now         func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(redisClient *redis.Client, historySize int64) *SessionService {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &SessionService{
		redis:       redisClient,
		historySize: historySize,
		now:         time.Now,
	}
}

// GenerateToken returns a fresh opaque token. It is registered on first Touch.
func (s *SessionService) GenerateToken() string {
	return TokenPrefix + uid.NewToken()
}

// Touch records activity for token. When itemID is not empty the item is
// appended to the session history, the history is trimmed to the newest
// entries and the item's global view count is bumped.
//
// The commands are pipelined but not transactional; concurrent touches of the
// same token may briefly leave the history over size.
func (s *SessionService) Touch(ctx context.Context, token, userID, itemID string) error {
	if token == "" {
		return ErrUnknownToken
	}
	ts := unixSeconds(s.now())

	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, keys.Login, token, userID)
	pipe.ZAdd(ctx, keys.Recent, redis.Z{Score: ts, Member: token})
	if itemID != "" {
		history := keys.History(token)
		pipe.ZAdd(ctx, history, redis.Z{Score: ts, Member: itemID})
		pipe.ZRemRangeByRank(ctx, history, 0, -(s.historySize + 1))
		pipe.ZIncrBy(ctx, keys.Viewed, -1, itemID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// CheckToken returns the user that owns token.
func (s *SessionService) CheckToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnknownToken
	}

	userID, err := s.redis.HGet(ctx, keys.Login, token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to check token: %w", err)
	}
	return userID, nil
}

// History returns the items viewed in a session, newest first.
func (s *SessionService) History(ctx context.Context, token string) ([]model.View, error) {
	entries, err := s.redis.ZRevRangeWithScores(ctx, keys.History(token), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	views := make([]model.View, 0, len(entries))
	for _, z := range entries {
		item, _ := z.Member.(string)
		views = append(views, model.View{ItemID: item, ViewedAt: fromUnixSeconds(z.Score)})
	}
	return views, nil
}

// Count returns the number of registered sessions.
func (s *SessionService) Count(ctx context.Context) (int64, error) {
	return s.redis.ZCard(ctx, keys.Recent).Result()
}

// AddToCart sets the count of itemID in the session's cart. A count of zero
// or less removes the item.
func (s *SessionService) AddToCart(ctx context.Context, token, itemID string, count int64) error {
	var err error
	if count <= 0 {
		err = s.redis.HDel(ctx, keys.Cart(token), itemID).Err()
	} else {
		err = s.redis.HSet(ctx, keys.Cart(token), itemID, count).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}

// Cart returns the contents of the session's cart.
func (s *SessionService) Cart(ctx context.Context, token string) ([]model.CartLine, error) {
	fields, err := s.redis.HGetAll(ctx, keys.Cart(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines := make([]model.CartLine, 0, len(fields))
	for item, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		lines = append(lines, model.CartLine{ItemID: item, Count: n})
	}
	return lines, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}
