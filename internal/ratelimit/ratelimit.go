// Package ratelimit implements per-category sliding-window rate limiting backed by Valkey. Unlike the coarse global
// and auth-group in-memory limiters registered directly on the Fiber app, each category here tracks its own window
// and key scope (IP or user) and survives across server restarts and multiple server instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Category names a rate-limited operation. Each category has its own limit, window, and key scope.
type Category string

const (
	AuthLogin         Category = "auth_login"
	AuthPasswordReset Category = "auth_password_reset"
	QrAuth            Category = "qr_auth"
	DeviceLink        Category = "device_link"
	WebAuthn          Category = "webauthn"
	ProximityInit     Category = "proximity_init"
	PushRegister      Category = "push_register"
	ReportSubmission  Category = "report_submission"
)

// Rule defines how many events are allowed within a window for a given category.
type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules are the spec-mandated limits per category.
var DefaultRules = map[Category]Rule{
	AuthLogin:         {Limit: 5, Window: 60 * time.Second},
	AuthPasswordReset: {Limit: 2, Window: 60 * time.Second},
	QrAuth:            {Limit: 5, Window: 60 * time.Second},
	DeviceLink:        {Limit: 3, Window: 10 * time.Minute},
	WebAuthn:          {Limit: 10, Window: 60 * time.Second},
	ProximityInit:     {Limit: 3, Window: 5 * time.Minute},
	PushRegister:      {Limit: 5, Window: time.Hour},
	ReportSubmission:  {Limit: 10, Window: time.Hour},
}

// Limiter enforces per-category sliding-window limits.
type Limiter interface {
	// Allow reports whether another event is permitted for the given category and scope key (an IP address or a user
	// ID, depending on the category). When it returns false, retryAfter gives an estimate of when the window will
	// next admit an event.
	Allow(ctx context.Context, category Category, key string) (allowed bool, retryAfter time.Duration, err error)
}

// ValkeyLimiter implements Limiter using a Valkey sorted set per (category, key) as a sliding-window event log.
type ValkeyLimiter struct {
	client *redis.Client
	rules  map[Category]Rule
}

// NewValkeyLimiter creates a limiter using the given rule set. A nil rules map uses DefaultRules.
func NewValkeyLimiter(client *redis.Client, rules map[Category]Rule) *ValkeyLimiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &ValkeyLimiter{client: client, rules: rules}
}

func limiterKey(category Category, key string) string {
	return "ratelimit:" + string(category) + ":" + key
}

// Allow records one event for (category, key) and reports whether it falls within the configured limit. It uses a
// sorted-set event log scored by timestamp: stale entries outside the window are trimmed before counting, so the
// window slides continuously rather than resetting on fixed boundaries.
func (l *ValkeyLimiter) Allow(ctx context.Context, category Category, key string) (bool, time.Duration, error) {
	rule, ok := l.rules[category]
	if !ok {
		return false, 0, fmt.Errorf("ratelimit: unknown category %q", category)
	}

	now := time.Now()
	windowStart := now.Add(-rule.Window)
	member := fmt.Sprintf("%d-%s", now.UnixNano(), key)
	redisKey := limiterKey(category, key)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ratelimit prune: %w", err)
	}

	if int(countCmd.Val()) >= rule.Limit {
		oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		retryAfter := rule.Window
		if err == nil && len(oldest) == 1 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retryAfter = rule.Window - now.Sub(oldestAt)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return false, retryAfter, nil
	}

	if err := l.client.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		return false, 0, fmt.Errorf("ratelimit record: %w", err)
	}
	return true, 0, nil
}
