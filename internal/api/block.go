package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/block"
	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/models"
)

// BlockHandler serves user-block endpoints. Blocks are account-scoped, not guild-scoped: they apply uniformly across
// DMs and every shared guild.
type BlockHandler struct {
	blocks *block.Service
	log    zerolog.Logger
}

// NewBlockHandler creates a new block handler.
func NewBlockHandler(blocks *block.Service, logger zerolog.Logger) *BlockHandler {
	return &BlockHandler{blocks: blocks, log: logger}
}

// ListBlocks handles GET /api/v1/users/@me/blocks.
func (h *BlockHandler) ListBlocks(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	blocks, err := h.blocks.List(c.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "block").Msg("list blocks failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	out := make([]models.UserBlock, len(blocks))
	for i, b := range blocks {
		out[i] = models.UserBlock{
			BlockedUserID: b.BlockedID.String(),
			CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		}
	}
	return httputil.Success(c, out)
}

// BlockUser handles POST /api/v1/users/@me/blocks.
func (h *BlockHandler) BlockUser(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	var body models.BlockUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	targetID, err := uuid.Parse(body.UserID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid user ID format")
	}

	if err := h.blocks.Block(c.Context(), userID, targetID); err != nil {
		return h.mapBlockError(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"blocked_user_id": targetID.String()})
}

// UnblockUser handles DELETE /api/v1/users/@me/blocks/:userID.
func (h *BlockHandler) UnblockUser(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	targetID, err := uuid.Parse(c.Params("userID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid user ID format")
	}

	if err := h.blocks.Unblock(c.Context(), userID, targetID); err != nil {
		return h.mapBlockError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BlockHandler) mapBlockError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, block.ErrCannotBlockSelf):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.CannotBlockSelf, "You cannot block yourself")
	case errors.Is(err, block.ErrAlreadyBlocked):
		return httputil.Fail(c, fiber.StatusConflict, apierrors.AlreadyBlocked, "User is already blocked")
	case errors.Is(err, block.ErrNotBlocked):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.NotBlocked, "User is not blocked")
	default:
		h.log.Error().Err(err).Str("handler", "block").Msg("block operation failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
