package cache

import (
	"context"
	"time"
)

// Cache stores computed responses. RedisCache shares them across instances;
// MemoryCache keeps them in-process for development and tests.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error
}

// Gate decides whether a request's response may be cached.
type Gate interface {
	IsCacheable(ctx context.Context, request string) (bool, error)
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
