package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const contentAccessPrefix = "contentaccess:body:"

// ContentAccessCache provides Redis-backed storage for generated content
// access payloads, keyed by consumer UUID. Entries expire after the
// configured TTL so a stale payload is rebuilt on the next request even
// when no explicit invalidation fired.
type ContentAccessCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContentAccessCache creates a new ContentAccessCache instance
func NewContentAccessCache(client *redis.Client, ttl time.Duration) *ContentAccessCache {
	return &ContentAccessCache{client: client, ttl: ttl}
}

// Get returns the cached payload body for the consumer, and whether it was found
func (c *ContentAccessCache) Get(ctx context.Context, consumerUUID string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, contentAccessPrefix+consumerUUID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get content access body: %w", err)
	}
	return val, true, nil
}

// Set stores the payload body for the consumer
func (c *ContentAccessCache) Set(ctx context.Context, consumerUUID string, body []byte) error {
	if err := c.client.Set(ctx, contentAccessPrefix+consumerUUID, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache content access body: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload for the consumer
func (c *ContentAccessCache) Invalidate(ctx context.Context, consumerUUID string) error {
	if err := c.client.Del(ctx, contentAccessPrefix+consumerUUID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate content access body: %w", err)
	}
	return nil
}
