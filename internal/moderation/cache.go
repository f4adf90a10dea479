package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// configCacheTTL matches spec.md's "cache-first, TTL 15 min" requirement for filter config lookups.
const configCacheTTL = 15 * time.Minute

func configCacheKey(guildID uuid.UUID) string {
	return "filterconfig:" + guildID.String()
}

// ConfigCache wraps a ConfigRepository with a cache-first read path, invalidated synchronously on write.
type ConfigCache struct {
	client *redis.Client
	repo   ConfigRepository
}

// NewConfigCache creates a cache-first wrapper around repo.
func NewConfigCache(client *redis.Client, repo ConfigRepository) *ConfigCache {
	return &ConfigCache{client: client, repo: repo}
}

// List returns the guild's enabled filter set, cache first. A cache miss or decode failure falls back to the
// authoritative store and repopulates the cache.
func (c *ConfigCache) List(ctx context.Context, guildID uuid.UUID) ([]FilterConfig, error) {
	val, err := c.client.Get(ctx, configCacheKey(guildID)).Result()
	if err == nil {
		var configs []FilterConfig
		if jErr := json.Unmarshal([]byte(val), &configs); jErr == nil {
			return configs, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Cache errors fail open to the authoritative store rather than propagating.
	}

	configs, err := c.repo.List(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if encoded, jErr := json.Marshal(configs); jErr == nil {
		_ = c.client.Set(ctx, configCacheKey(guildID), encoded, configCacheTTL).Err()
	}
	return configs, nil
}

// Upsert writes through to the repository and invalidates the cached entry.
func (c *ConfigCache) Upsert(ctx context.Context, guildID uuid.UUID, filterType FilterType, params FilterConfigParams) (*FilterConfig, error) {
	cfg, err := c.repo.Upsert(ctx, guildID, filterType, params)
	if err != nil {
		return nil, err
	}
	if delErr := c.client.Del(ctx, configCacheKey(guildID)).Err(); delErr != nil {
		return nil, fmt.Errorf("invalidate filter config cache: %w", delErr)
	}
	return cfg, nil
}
