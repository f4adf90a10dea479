package block

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// cacheTTL is the time-to-live for a cached blocked-set entry.
	cacheTTL = 300 * time.Second

	cachePrefix = "blocks"

	// blockedMarker is the sentinel value stored for a blocked pair; its presence, not its content, is what matters.
	blockedMarker = "1"
)

func cacheKey(userID, otherID uuid.UUID) string {
	return cachePrefix + ":" + userID.String() + ":" + otherID.String()
}

// Cache provides a fast-path lookup for blocked pairs, avoiding a database round trip on every message/typing/
// presence fan-out decision. A cache miss falls back to the repository and backfills the cache.
type Cache interface {
	GetMany(ctx context.Context, userID uuid.UUID, candidates []uuid.UUID) (hits map[uuid.UUID]bool, misses []uuid.UUID, err error)
	SetMany(ctx context.Context, userID uuid.UUID, blocked map[uuid.UUID]bool) error
	Invalidate(ctx context.Context, a, b uuid.UUID) error
}

// ValkeyCache implements Cache using Valkey/Redis.
type ValkeyCache struct {
	client *redis.Client
}

// NewValkeyCache creates a new Valkey-backed block cache.
func NewValkeyCache(client *redis.Client) *ValkeyCache {
	return &ValkeyCache{client: client}
}

// GetMany retrieves cached block state for each candidate in a single pipelined round trip. Candidates with no cache
// entry (neither a hit for "blocked" nor "not blocked" was ever recorded) are returned in misses for the caller to
// resolve against the database.
func (c *ValkeyCache) GetMany(ctx context.Context, userID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]bool, []uuid.UUID, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(candidates))
	for i, other := range candidates {
		cmds[i] = pipe.Get(ctx, cacheKey(userID, other))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, nil, fmt.Errorf("block cache pipeline get: %w", err)
	}

	hits := make(map[uuid.UUID]bool, len(candidates))
	var misses []uuid.UUID
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err == redis.Nil {
			misses = append(misses, candidates[i])
			continue
		}
		if err != nil {
			misses = append(misses, candidates[i])
			continue
		}
		hits[candidates[i]] = val == blockedMarker
	}
	return hits, misses, nil
}

// SetMany caches the resolved block state (true or false) for each candidate.
func (c *ValkeyCache) SetMany(ctx context.Context, userID uuid.UUID, blocked map[uuid.UUID]bool) error {
	if len(blocked) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for other, isBlocked := range blocked {
		val := "0"
		if isBlocked {
			val = blockedMarker
		}
		pipe.Set(ctx, cacheKey(userID, other), val, cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("block cache pipeline set: %w", err)
	}
	return nil
}

// Invalidate drops the cached entries for both directions of the a/b pair so the next lookup re-reads the database.
func (c *ValkeyCache) Invalidate(ctx context.Context, a, b uuid.UUID) error {
	keys := []string{cacheKey(a, b), cacheKey(b, a)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("block cache invalidate: %w", err)
	}
	return nil
}
