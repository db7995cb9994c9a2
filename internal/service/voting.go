package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	// VoteScore is the score an article gains per vote: a day's worth of
	// seconds divided by the 200 votes needed to stay on the front page.
	VoteScore = 432

	// VotingWindow is how long after posting an article accepts votes.
	VotingWindow = 7 * 24 * time.Hour

	// ArticlesPerPage is the page size of article listings.
	ArticlesPerPage = 25

	// GroupCacheTTL is how long an intersected group ranking is reused.
	GroupCacheTTL = 60 * time.Second
)

var (
	// ErrVotingClosed is returned for votes on articles past their window.
	ErrVotingClosed = errors.New("voting closed")

	// ErrUnknownArticle is returned when the article does not exist.
	ErrUnknownArticle = errors.New("unknown article")

	// ErrInvalidOrder is returned for an unsupported listing order.
	ErrInvalidOrder = errors.New("invalid order")
)

// VotingService posts articles and ranks them by votes or recency.
type VotingService struct {
	redis *redis.Client
	now   func() time.Time
}

// NewVotingService creates a voting service.
func NewVotingService(redisClient *redis.Client) *VotingService {
	return &VotingService{redis: redisClient, now: time.Now}
}

// PostArticle stores a new article and casts the poster's own vote.
func (s *VotingService) PostArticle(ctx context.Context, user, title, link string) (string, error) {
	n, err := s.redis.Incr(ctx, keys.ArticleCounter).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate article id: %w", err)
	}
	id := strconv.FormatInt(n, 10)
	article := keys.Article(id)
	now := unixSeconds(s.now())

	pipe := s.redis.TxPipeline()
	pipe.SAdd(ctx, keys.Voted(id), user)
	pipe.Expire(ctx, keys.Voted(id), VotingWindow)
	pipe.HSet(ctx, article, map[string]interface{}{
		"title":  title,
		"link":   link,
		"poster": user,
		"time":   now,
		"votes":  1,
	})
	pipe.ZAdd(ctx, keys.ArticleScore, redis.Z{Score: now + VoteScore, Member: article})
	pipe.ZAdd(ctx, keys.ArticleTime, redis.Z{Score: now, Member: article})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to post article: %w", err)
	}
	return id, nil
}

// VoteArticle records user's vote. It reports false if the user had already
// voted.
func (s *VotingService) VoteArticle(ctx context.Context, user, id string) (bool, error) {
	article := keys.Article(id)

	posted, err := s.redis.ZScore(ctx, keys.ArticleTime, article).Result()
	if errors.Is(err, redis.Nil) {
		return false, ErrUnknownArticle
	}
	if err != nil {
		return false, fmt.Errorf("failed to get article time: %w", err)
	}
	if posted < unixSeconds(s.now().Add(-VotingWindow)) {
		return false, ErrVotingClosed
	}

	added, err := s.redis.SAdd(ctx, keys.Voted(id), user).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record vote: %w", err)
	}
	if added == 0 {
		return false, nil
	}

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, keys.ArticleScore, VoteScore, article)
	pipe.HIncrBy(ctx, article, "votes", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count vote: %w", err)
	}
	return true, nil
}

// Articles returns one page of articles ordered by order, which is either
// "score" or "time". Pages start at 1.
func (s *VotingService) Articles(ctx context.Context, page int, order string) ([]model.Article, error) {
	key, err := orderKey(order)
	if err != nil {
		return nil, err
	}
	return s.articlesFrom(ctx, key, page)
}

// UpdateGroups adds the article to the groups in add and removes it from the
// groups in remove.
func (s *VotingService) UpdateGroups(ctx context.Context, id string, add, remove []string) error {
	article := keys.Article(id)

	pipe := s.redis.Pipeline()
	for _, g := range add {
		pipe.SAdd(ctx, keys.Group(g), article)
	}
	for _, g := range remove {
		pipe.SRem(ctx, keys.Group(g), article)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update groups: %w", err)
	}
	return nil
}

// GroupArticles returns one page of a group's articles in the given order.
// The group ranking is built by intersection and reused for GroupCacheTTL.
func (s *VotingService) GroupArticles(ctx context.Context, group string, page int, order string) ([]model.Article, error) {
	orderBy, err := orderKey(order)
	if err != nil {
		return nil, err
	}
	key := orderBy + group

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check group ranking: %w", err)
	}
	if exists == 0 {
		pipe := s.redis.TxPipeline()
		pipe.ZInterStore(ctx, key, &redis.ZStore{
			Keys:      []string{keys.Group(group), orderBy},
			Aggregate: "MAX",
		})
		pipe.Expire(ctx, key, GroupCacheTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to build group ranking: %w", err)
		}
	}
	return s.articlesFrom(ctx, key, page)
}

func (s *VotingService) articlesFrom(ctx context.Context, key string, page int) ([]model.Article, error) {
	if page < 1 {
		page = 1
	}
	start := int64(page-1) * ArticlesPerPage
	ids, err := s.redis.ZRevRange(ctx, key, start, start+ArticlesPerPage-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, id)
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to load articles: %w", err)
		}
	}

	articles := make([]model.Article, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		posted, _ := strconv.ParseFloat(fields["time"], 64)
		votes, _ := strconv.ParseInt(fields["votes"], 10, 64)
		articles = append(articles, model.Article{
			ID:       strings.TrimPrefix(ids[i], keys.ArticleCounter),
			Title:    fields["title"],
			Link:     fields["link"],
			Poster:   fields["poster"],
			PostedAt: fromUnixSeconds(posted),
			Votes:    votes,
		})
	}
	return articles, nil
}

func orderKey(order string) (string, error) {
	switch order {
	case "", "score":
		return keys.ArticleScore, nil
	case "time":
		return keys.ArticleTime, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
}

// Count returns the number of posted articles.
func (s *VotingService) Count(ctx context.Context) (int64, error) {
	n, err := s.redis.ZCard(ctx, keys.ArticleScore).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}
