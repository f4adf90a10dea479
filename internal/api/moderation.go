package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/models"
	"github.com/driftline/driftline-server/internal/moderation"
)

// ModerationHandler serves guild content-filter configuration endpoints.
type ModerationHandler struct {
	configs moderation.ConfigRepository
	log     zerolog.Logger
}

// NewModerationHandler creates a new moderation handler. Access control is enforced by the caller's route middleware
// (ManageServer), not by this handler.
func NewModerationHandler(configs moderation.ConfigRepository, logger zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{configs: configs, log: logger}
}

// ListFilters handles GET /api/v1/guilds/:guildID/filters.
func (h *ModerationHandler) ListFilters(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	configs, err := h.configs.List(c, guildID)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "moderation").Msg("list filter configs failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	out := make([]models.FilterConfig, len(configs))
	for i, cfg := range configs {
		out[i] = models.FilterConfig{
			GuildID:    cfg.GuildID.String(),
			FilterType: string(cfg.FilterType),
			Enabled:    cfg.Enabled,
			Patterns:   cfg.Patterns,
			Action:     cfg.Action,
		}
	}
	return httputil.Success(c, out)
}

// UpdateFilter handles PUT /api/v1/guilds/:guildID/filters/:filterType.
func (h *ModerationHandler) UpdateFilter(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}
	filterType := moderation.FilterType(c.Params("filterType"))

	var body models.UpdateFilterConfigRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	cfg, err := h.configs.Upsert(c, guildID, filterType, moderation.FilterConfigParams{
		Enabled:  body.Enabled,
		Patterns: body.Patterns,
		Action:   body.Action,
	})
	if err != nil {
		return h.mapModerationError(c, err)
	}

	return httputil.Success(c, models.FilterConfig{
		GuildID:    cfg.GuildID.String(),
		FilterType: string(cfg.FilterType),
		Enabled:    cfg.Enabled,
		Patterns:   cfg.Patterns,
		Action:     cfg.Action,
	})
}

func (h *ModerationHandler) mapModerationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, moderation.ErrInvalidFilterType):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Unknown filter type")
	case errors.Is(err, moderation.ErrInvalidAction):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid filter action")
	default:
		h.log.Error().Err(err).Str("handler", "moderation").Msg("unhandled moderation service error")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
