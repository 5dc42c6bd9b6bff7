package popularity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const viewCacheKey = "popularity:view"

// DefaultCacheTTL bounds staleness between rebuilds if a rebuild is missed
const DefaultCacheTTL = 48 * time.Hour

// Cache stores the popularity view in Redis for fast reads
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a view cache. ttl <= 0 selects DefaultCacheTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// GetView retrieves the cached view. A miss returns (nil, nil). Corrupt
// entries are deleted and reported as a miss with an error.
func (c *Cache) GetView(ctx context.Context) (*View, error) {
	data, err := c.client.Get(ctx, viewCacheKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var view View
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		c.client.Del(ctx, viewCacheKey)
		return nil, fmt.Errorf("failed to unmarshal cached view: %w", err)
	}

	return &view, nil
}

// SetView stores the view with the cache TTL
func (c *Cache) SetView(ctx context.Context, view *View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}

	if err := c.client.Set(ctx, viewCacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}
