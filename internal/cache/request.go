package cache

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-api/internal/keys"
	"storefront-api/internal/logger"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// DefaultRequestTTL is how long a cached response lives.
const DefaultRequestTTL = 300 * time.Second

// ComputeFunc produces the response for a request.
type ComputeFunc func(ctx context.Context, request string) ([]byte, error)

// RequestCache serves responses for popular item requests from a cache.
type RequestCache struct {
	store Cache
	gate  Gate
	ttl   time.Duration
	log   *logrus.Entry
}

// NewRequestCache creates a request cache storing into store and consulting
// gate for every request.
func NewRequestCache(store Cache, gate Gate, ttl time.Duration, log logrus.FieldLogger) *RequestCache {
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	return &RequestCache{
		store: store,
		gate:  gate,
		ttl:   ttl,
		log:   logger.Component(log, "requestcache"),
	}
}

// Get returns the response for request. Cacheable requests are served from
// the cache when present; compute is only called on a miss or when the
// request is not cacheable.
func (c *RequestCache) Get(ctx context.Context, request string, compute ComputeFunc) ([]byte, error) {
	ok, err := c.gate.IsCacheable(ctx, request)
	if err != nil {
		return nil, err
	}
	if !ok {
		return compute(ctx, request)
	}

	key := keys.Page(HashRequest(request))
	content, err := c.store.Get(ctx, key)
	if err == nil {
		return content, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	content, err = compute(ctx, request)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, content, c.ttl); err != nil {
		// The response is still good; the next request recomputes it.
		c.log.WithError(err).Warn("failed to store response")
	}
	return content, nil
}

// HashRequest returns a stable hash of the canonical form of request, so
// that equivalent URLs share a cache entry.
func HashRequest(request string) string {
	return strconv.FormatUint(xxhash.Sum64String(canonicalRequest(request)), 16)
}

// canonicalRequest lower-cases scheme and host and sorts query parameters.
// Unparseable requests are used verbatim.
func canonicalRequest(request string) string {
	u, err := url.Parse(request)
	if err != nil {
		return request
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""
	return u.String()
}
