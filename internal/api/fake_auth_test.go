package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// fakeAuth is test-only middleware standing in for auth.RequireAuth: it sets c.Locals("userID") to userID so handlers
// under test see the same identity shape the real middleware would have produced. Passing uuid.Nil simulates an
// unauthenticated request by leaving Locals unset, matching what an absent or invalid token leaves behind.
func fakeAuth(userID uuid.UUID) fiber.Handler {
	return func(c fiber.Ctx) error {
		if userID != uuid.Nil {
			c.Locals("userID", userID)
		}
		return c.Next()
	}
}
