package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/guild"
	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/models"
	"github.com/driftline/driftline-server/internal/moderation"
)

// AdminHandler serves instance-administration endpoints. Every route it exposes is mounted behind
// elevation.RequireElevated, so all handlers here may assume the caller has already proven a fresh second factor.
type AdminHandler struct {
	guilds guild.Repository
	audit  moderation.AuditRepository
	log    zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(guilds guild.Repository, audit moderation.AuditRepository, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{guilds: guilds, audit: audit, log: logger}
}

// SuspendGuild handles POST /api/v1/admin/guilds/:guildID/suspend.
func (h *AdminHandler) SuspendGuild(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var body models.SuspendGuildRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	g, err := h.guilds.Suspend(c, guildID, body.Reason)
	if err != nil {
		return h.mapAdminError(c, err)
	}

	h.appendAudit(c, guildID, guildID, moderation.ActionElevatedAdmin, "suspend guild: "+body.Reason)
	return httputil.Success(c, g.ToModel())
}

// UnsuspendGuild handles POST /api/v1/admin/guilds/:guildID/unsuspend.
func (h *AdminHandler) UnsuspendGuild(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	g, err := h.guilds.Unsuspend(c, guildID)
	if err != nil {
		return h.mapAdminError(c, err)
	}

	h.appendAudit(c, guildID, guildID, moderation.ActionElevatedAdmin, "unsuspend guild")
	return httputil.Success(c, g.ToModel())
}

// appendAudit records an admin action. Failures are logged, not propagated: the admin action itself already
// succeeded, and the audit trail is best-effort the same way moderation's filter-match logging is.
func (h *AdminHandler) appendAudit(c fiber.Ctx, guildID, targetID uuid.UUID, kind, reason string) {
	actorID, _ := c.Locals("userID").(uuid.UUID)
	entry := moderation.Entry{
		GuildID:    guildID,
		ActorID:    &actorID,
		TargetType: "guild",
		TargetID:   targetID,
		Kind:       kind,
		Reason:     reason,
	}
	if err := h.audit.Append(c, entry); err != nil {
		h.log.Warn().Err(err).Str("handler", "admin").Msg("audit log append failed")
	}
}

func (h *AdminHandler) mapAdminError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, guild.ErrNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.UnknownGuild, "Guild not found")
	default:
		h.log.Error().Err(err).Str("handler", "admin").Msg("unhandled admin service error")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
