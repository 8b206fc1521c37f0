package shortlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache caches resolved trackpages in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a trackpage cache over an existing Redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(slug string) string {
	return "trackpage:" + slug
}

// Get returns the cached trackpage for a slug, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, slug string) (*TrackPage, error) {
	raw, err := c.client.Get(ctx, cacheKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var page TrackPage
	if err := json.Unmarshal(raw, &page); err != nil {
		// A corrupt entry is treated as a miss so the store can repopulate it.
		return nil, nil
	}
	return &page, nil
}

// Set stores a trackpage under its slug for the cache TTL.
func (c *RedisCache) Set(ctx context.Context, page *TrackPage) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal trackpage: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(page.Slug), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
