package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/models"

	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/invite"
	"github.com/driftline/driftline-server/internal/member"
	"github.com/driftline/driftline-server/internal/onboarding"
	"github.com/driftline/driftline-server/internal/permission"
	"github.com/driftline/driftline-server/internal/permissions"
	"github.com/driftline/driftline-server/internal/user"
)

// InviteHandler serves invite endpoints.
type InviteHandler struct {
	invites    invite.Repository
	onboarding onboarding.Repository
	members    member.Repository
	users      user.Repository
	resolver   *permission.Resolver
	log        zerolog.Logger
}

// NewInviteHandler creates a new invite handler.
func NewInviteHandler(invites invite.Repository, onboardingRepo onboarding.Repository, members member.Repository, users user.Repository, resolver *permission.Resolver, logger zerolog.Logger) *InviteHandler {
	return &InviteHandler{invites: invites, onboarding: onboardingRepo, members: members, users: users, resolver: resolver, log: logger}
}

// CreateInvite handles POST /api/v1/guilds/:guildID/invites.
func (h *InviteHandler) CreateInvite(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var body models.CreateInviteRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	channelID, err := uuid.Parse(body.ChannelID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid channel ID format")
	}

	if err := invite.ValidateMaxUses(body.MaxUses); err != nil {
		return h.mapInviteError(c, err)
	}
	if err := invite.ValidateMaxAge(body.MaxAgeSeconds); err != nil {
		return h.mapInviteError(c, err)
	}

	inv, err := h.invites.Create(c, userID, invite.CreateParams{
		GuildID:       guildID,
		ChannelID:     channelID,
		MaxUses:       body.MaxUses,
		MaxAgeSeconds: body.MaxAgeSeconds,
	})
	if err != nil {
		return h.mapInviteError(c, err)
	}

	return httputil.SuccessStatus(c, fiber.StatusCreated, toInviteModel(inv))
}

// ListInvites handles GET /api/v1/guilds/:guildID/invites.
func (h *InviteHandler) ListInvites(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var after *uuid.UUID
	if raw := c.Query("after"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid after parameter")
		}
		after = &id
	}

	rawLimit, _ := strconv.Atoi(c.Query("limit"))
	limit := invite.ClampLimit(rawLimit)

	invites, err := h.invites.List(c, guildID, after, limit)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "invite").Msg("list invites failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	result := make([]models.Invite, len(invites))
	for i := range invites {
		result[i] = toInviteModel(&invites[i])
	}
	return httputil.Success(c, result)
}

// DeleteInvite handles DELETE /api/v1/invites/:code. The route has no
// :guildID segment since invite codes are globally unique, so the
// permission check runs here once the owning guild is known rather than
// through guild-scoped middleware.
func (h *InviteHandler) DeleteInvite(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	code := c.Params("code")
	inv, err := h.invites.GetByCode(c, code)
	if err != nil {
		return h.mapInviteError(c, err)
	}

	status, err := h.members.GetStatus(c, inv.GuildID, userID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return httputil.Fail(c, fiber.StatusForbidden, apierrors.MembershipRequired, "Server membership is required")
		}
		h.log.Error().Err(err).Str("handler", "invite").Msg("get member status failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
	if status == models.MemberStatusPending {
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.MembershipRequired, "Onboarding must be completed first")
	}

	allowed, err := h.resolver.HasServerPermission(c.Context(), inv.GuildID, userID, permissions.ManageInvites)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "invite").Msg("permission check failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
	if !allowed {
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.MissingPermissions, "You do not have the required permissions")
	}

	if err := h.invites.Delete(c, inv.GuildID, code); err != nil {
		return h.mapInviteError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// JoinViaInvite handles POST /api/v1/invites/:code/join.
func (h *InviteHandler) JoinViaInvite(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	code := c.Params("code")
	target, err := h.invites.GetByCode(c, code)
	if err != nil {
		return h.mapInviteError(c, err)
	}

	// Check ban before consuming the invite.
	banned, err := h.members.IsBanned(c, target.GuildID, userID)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "invite").Msg("ban check failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
	if banned {
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.Banned, "You are banned from this server")
	}

	inv, err := h.invites.Use(c, code)
	if err != nil {
		return h.mapInviteError(c, err)
	}

	// Check minimum account age requirement.
	cfg, err := h.onboarding.Get(c)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "invite").Msg("get onboarding config failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	if cfg.MinAccountAgeSeconds > 0 {
		u, err := h.users.GetByID(c, userID)
		if err != nil {
			h.log.Error().Err(err).Str("handler", "invite").Msg("get user failed")
			return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
		}
		accountAge := time.Since(u.CreatedAt)
		if accountAge < time.Duration(cfg.MinAccountAgeSeconds)*time.Second {
			return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError,
				"Your account is too new to join this server")
		}
	}

	m, err := h.members.CreatePending(c, inv.GuildID, userID)
	if err != nil {
		return h.mapInviteError(c, err)
	}

	return httputil.Success(c, m.ToModel())
}

// toInviteModel converts the internal invite type to the protocol response type.
func toInviteModel(inv *invite.Invite) models.Invite {
	result := models.Invite{
		ID:            inv.ID.String(),
		Code:          inv.Code,
		ChannelID:     inv.ChannelID.String(),
		CreatorID:     inv.CreatorID.String(),
		MaxUses:       inv.MaxUses,
		UseCount:      inv.UseCount,
		MaxAgeSeconds: inv.MaxAgeSeconds,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.ExpiresAt != nil {
		s := inv.ExpiresAt.Format(time.RFC3339)
		result.ExpiresAt = &s
	}
	return result
}

// mapInviteError converts invite and member layer errors to appropriate HTTP responses.
func (h *InviteHandler) mapInviteError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, invite.ErrNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.UnknownInvite, "Invite not found")
	case errors.Is(err, invite.ErrExpired):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invite has expired")
	case errors.Is(err, invite.ErrMaxUsesReached):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invite has reached its maximum number of uses")
	case errors.Is(err, invite.ErrChannelNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.UnknownChannel, "Channel not found")
	case errors.Is(err, invite.ErrInvalidMaxUses):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, err.Error())
	case errors.Is(err, invite.ErrInvalidMaxAge):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, err.Error())
	case errors.Is(err, member.ErrAlreadyMember):
		return httputil.Fail(c, fiber.StatusConflict, apierrors.AlreadyMember, "You are already a member of this server")
	default:
		h.log.Error().Err(err).Str("handler", "invite").Msg("unhandled invite service error")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
