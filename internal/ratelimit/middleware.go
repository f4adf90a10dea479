package ratelimit

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/httputil"
)

// KeyFunc extracts the scope key (an IP address or a user ID) a category is limited by from the request.
type KeyFunc func(c fiber.Ctx) string

// ByIP scopes a category to the caller's IP address, used for pre-authentication categories like AuthLogin and
// ProximityInit.
func ByIP(c fiber.Ctx) string {
	return c.IP()
}

// ByUser scopes a category to the authenticated user ID, used for post-authentication categories like DeviceLink and
// ReportSubmission. Must run after RequireAuth.
func ByUser(c fiber.Ctx) string {
	if userID, ok := c.Locals("userID").(fmt.Stringer); ok {
		return userID.String()
	}
	return ByIP(c)
}

// Middleware returns Fiber middleware that enforces the named category's rate limit, keyed by keyFn. It responds
// 429/rate_limited without calling the next handler when the limit is exceeded.
func Middleware(limiter Limiter, category Category, keyFn KeyFunc) fiber.Handler {
	return func(c fiber.Ctx) error {
		allowed, retryAfter, err := limiter.Allow(c.Context(), category, keyFn(c))
		if err != nil {
			// Fail open: a limiter outage should not take down the endpoint it protects.
			return c.Next()
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%.0f", retryAfter.Seconds()))
			return httputil.Fail(c, fiber.StatusTooManyRequests, apierrors.RateLimited, "Rate limit exceeded, please try again later")
		}
		return c.Next()
	}
}
