package elevation

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/httputil"
)

// RequireElevated returns Fiber middleware gating destructive admin endpoints on an active elevated session. It must
// run after auth.RequireAuth, which populates c.Locals("userID").
func RequireElevated(svc *Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uuid.UUID)
		if !ok {
			return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
		}

		elevated, err := svc.IsElevated(c, userID)
		if err != nil {
			return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
		}
		if !elevated {
			return httputil.Fail(c, fiber.StatusForbidden, apierrors.ElevationRequired, "This action requires an active elevated session")
		}

		return c.Next()
	}
}
