package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/models"
	"github.com/driftline/driftline-server/internal/permission"
	"github.com/driftline/driftline-server/internal/permissions"
	"github.com/driftline/driftline-server/internal/report"
)

// ReportHandler serves user-report endpoints.
type ReportHandler struct {
	reports  report.Repository
	resolver *permission.Resolver
	log      zerolog.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reports report.Repository, resolver *permission.Resolver, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, resolver: resolver, log: logger}
}

// CreateReport handles POST /api/v1/guilds/:guildID/reports. The 10/hour/reporter rate limit is enforced by the
// ratelimit.Middleware registered ahead of this handler, not here.
func (h *ReportHandler) CreateReport(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var body models.CreateReportRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	if body.TargetType != report.TargetUser && body.TargetType != report.TargetMessage {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "target_type must be \"user\" or \"message\"")
	}

	targetID, err := uuid.Parse(body.TargetID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid target_id format")
	}

	// reporter_id != reported_user_id
	if body.TargetType == report.TargetUser && targetID == userID {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.CannotReportSelf, "You cannot report yourself")
	}

	rep, err := h.reports.Create(c, report.CreateParams{
		ReporterID: userID,
		TargetType: body.TargetType,
		TargetID:   targetID,
		GuildID:    &guildID,
		Reason:     body.Reason,
	})
	if err != nil {
		h.log.Error().Err(err).Str("handler", "report").Msg("create report failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	return httputil.SuccessStatus(c, fiber.StatusCreated, toReportModel(rep))
}

// ListReports handles GET /api/v1/guilds/:guildID/reports. Requires ManageMessages, the closest existing permission
// bit to a dedicated moderation-review grant.
func (h *ReportHandler) ListReports(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	if err := h.requireReportReview(c, guildID, userID); err != nil {
		return err
	}

	status := c.Query("status")
	reports, err := h.reports.ListForGuild(c, guildID, status)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "report").Msg("list reports failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	out := make([]models.Report, len(reports))
	for i := range reports {
		out[i] = toReportModel(&reports[i])
	}
	return httputil.Success(c, out)
}

// UpdateReportStatus handles PATCH /api/v1/guilds/:guildID/reports/:reportID.
func (h *ReportHandler) UpdateReportStatus(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}
	reportID, err := uuid.Parse(c.Params("reportID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid report ID format")
	}

	if err := h.requireReportReview(c, guildID, userID); err != nil {
		return err
	}

	var body models.UpdateReportStatusRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	rep, err := h.reports.UpdateStatus(c, reportID, body.Status, userID, body.ResolutionNote)
	if err != nil {
		return h.mapReportError(c, err)
	}
	return httputil.Success(c, toReportModel(rep))
}

func (h *ReportHandler) requireReportReview(c fiber.Ctx, guildID, userID uuid.UUID) error {
	allowed, err := h.resolver.HasServerPermission(c.Context(), guildID, userID, permissions.ManageMessages)
	if err != nil {
		h.log.Error().Err(err).Str("handler", "report").Msg("permission check failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
	if !allowed {
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.MissingPermissions, "You do not have the required permissions")
	}
	return nil
}

func (h *ReportHandler) mapReportError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, report.ErrNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.UnknownReport, "Report not found")
	case errors.Is(err, report.ErrInvalidTransition):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidReportState, "Invalid report status transition")
	default:
		h.log.Error().Err(err).Str("handler", "report").Msg("unhandled report service error")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}

func toReportModel(r *report.Report) models.Report {
	m := models.Report{
		ID:             r.ID.String(),
		ReporterID:     r.ReporterID.String(),
		TargetType:     r.TargetType,
		TargetID:       r.TargetID.String(),
		Reason:         r.Reason,
		Status:         r.Status,
		ResolutionNote: r.ResolutionNote,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
	}
	if r.GuildID != nil {
		m.GuildID = r.GuildID.String()
	}
	if r.ResolvedBy != nil {
		s := r.ResolvedBy.String()
		m.ResolvedBy = &s
	}
	return m
}
