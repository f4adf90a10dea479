package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/guild"
	"github.com/driftline/driftline-server/internal/models"

	"github.com/driftline/driftline-server/internal/httputil"
)

// GuildHandler serves guild (tenant) endpoints.
type GuildHandler struct {
	guilds guild.Repository
	log    zerolog.Logger
}

// NewGuildHandler creates a new guild handler.
func NewGuildHandler(guilds guild.Repository, logger zerolog.Logger) *GuildHandler {
	return &GuildHandler{guilds: guilds, log: logger}
}

// Create handles POST /api/v1/guilds. The caller becomes the new guild's owner.
func (h *GuildHandler) Create(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	var body models.CreateGuildRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}
	name := body.Name
	if err := guild.ValidateName(&name); err != nil {
		return h.mapGuildError(c, err)
	}

	g, err := h.guilds.Create(c, guild.CreateParams{Name: name, OwnerID: userID})
	if err != nil {
		return h.mapGuildError(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, g.ToModel())
}

// ListMine handles GET /api/v1/guilds/@me, the set of guilds the caller is an active member of.
func (h *GuildHandler) ListMine(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	guilds, err := h.guilds.ListForUser(c, userID)
	if err != nil {
		return h.mapGuildError(c, err)
	}

	result := make([]models.Guild, len(guilds))
	for i := range guilds {
		result[i] = guilds[i].ToModel()
	}
	return httputil.Success(c, result)
}

// Get handles GET /api/v1/guilds/:guildID.
func (h *GuildHandler) Get(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	g, err := h.guilds.Get(c, guildID)
	if err != nil {
		return h.mapGuildError(c, err)
	}
	return httputil.Success(c, g.ToModel())
}

// GetPublicInfo handles GET /api/v1/guilds/:guildID/info (unauthenticated).
func (h *GuildHandler) GetPublicInfo(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	g, err := h.guilds.Get(c, guildID)
	if err != nil {
		return h.mapGuildError(c, err)
	}

	return httputil.Success(c, models.PublicServerInfo{
		Name:        g.Name,
		Description: g.Description,
		IconKey:     g.IconKey,
	})
}

// Update handles PATCH /api/v1/guilds/:guildID.
func (h *GuildHandler) Update(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var body models.UpdateGuildRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	if err := guild.ValidateName(body.Name); err != nil {
		return h.mapGuildError(c, err)
	}
	if err := guild.ValidateDescription(body.Description); err != nil {
		return h.mapGuildError(c, err)
	}

	g, err := h.guilds.Update(c, guildID, guild.UpdateParams{
		Name:        body.Name,
		Description: body.Description,
		IconKey:     body.IconKey,
		BannerKey:   body.BannerKey,
	})
	if err != nil {
		return h.mapGuildError(c, err)
	}
	return httputil.Success(c, g.ToModel())
}

// Delete handles DELETE /api/v1/guilds/:guildID. Only the owner may delete a guild; the permission
// middleware enforces ownership before this handler runs.
func (h *GuildHandler) Delete(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}
	if err := h.guilds.Delete(c, guildID); err != nil {
		return h.mapGuildError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TransferOwnership handles POST /api/v1/guilds/:guildID/owner.
func (h *GuildHandler) TransferOwnership(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var body models.TransferOwnershipRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}
	newOwnerID, err := uuid.Parse(body.NewOwnerID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid new_owner_id format")
	}

	g, err := h.guilds.TransferOwnership(c, guildID, newOwnerID)
	if err != nil {
		return h.mapGuildError(c, err)
	}
	return httputil.Success(c, g.ToModel())
}

// mapGuildError converts guild-layer errors to appropriate HTTP responses.
func (h *GuildHandler) mapGuildError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, guild.ErrNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.UnknownGuild, "Guild not found")
	case errors.Is(err, guild.ErrNameLength):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, err.Error())
	case errors.Is(err, guild.ErrDescriptionLength):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, err.Error())
	case errors.Is(err, guild.ErrNotMember):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.NotGuildMember, "Target user is not a guild member")
	case errors.Is(err, guild.ErrSuspended):
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.GuildSuspended, "Guild is suspended")
	default:
		h.log.Error().Err(err).Str("handler", "guild").Msg("unhandled guild service error")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
