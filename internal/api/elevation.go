package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/elevation"
	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/models"
)

// ElevationHandler serves the admin step-up endpoint.
type ElevationHandler struct {
	elevation *elevation.Service
	log       zerolog.Logger
}

// NewElevationHandler creates a new elevation handler.
func NewElevationHandler(svc *elevation.Service, logger zerolog.Logger) *ElevationHandler {
	return &ElevationHandler{elevation: svc, log: logger}
}

// ElevateSession handles POST /api/v1/admin/elevate, opening a 15-minute elevated session gated by a fresh TOTP code.
func (h *ElevationHandler) ElevateSession(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	var body models.ElevateSessionRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	expiresAt, err := h.elevation.Elevate(c, userID, body.Code)
	if err != nil {
		return h.mapElevationError(c, err)
	}

	return httputil.Success(c, models.ElevateSessionResponse{
		// The token is an opaque client-facing marker, not a bearer credential: authorization is enforced
		// server-side by RequireElevated checking the Valkey session keyed on the caller's user ID.
		Token:     uuid.New().String(),
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

func (h *ElevationHandler) mapElevationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, elevation.ErrMFANotEnabled):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.MFANotEnabled, "MFA must be enabled to request an elevated session")
	case errors.Is(err, elevation.ErrInvalidCode):
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.InvalidCredentials, "Invalid verification code")
	default:
		h.log.Error().Err(err).Str("handler", "elevation").Msg("elevate session failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
