package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	apierrors "github.com/driftline/driftline-server/internal/apierrors"
	"github.com/driftline/driftline-server/internal/models"

	"github.com/driftline/driftline-server/internal/category"
	"github.com/driftline/driftline-server/internal/httputil"
	"github.com/driftline/driftline-server/internal/member"
	"github.com/driftline/driftline-server/internal/permission"
	"github.com/driftline/driftline-server/internal/permissions"
)

// CategoryHandler serves category endpoints.
type CategoryHandler struct {
	categories    category.Repository
	members       member.Repository
	resolver      *permission.Resolver
	maxCategories int
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categories category.Repository, members member.Repository, resolver *permission.Resolver, maxCategories int) *CategoryHandler {
	return &CategoryHandler{categories: categories, members: members, resolver: resolver, maxCategories: maxCategories}
}

// requireManageCategories checks that userID is an active member of guildID with the ManageCategories permission.
// Used by the standalone category routes, which have no :guildID path segment to hang guild-scoped middleware off of.
func (h *CategoryHandler) requireManageCategories(c fiber.Ctx, userID, guildID uuid.UUID) error {
	status, err := h.members.GetStatus(c, guildID, userID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return httputil.Fail(c, fiber.StatusForbidden, apierrors.MembershipRequired, "Server membership is required")
		}
		log.Error().Err(err).Str("handler", "category").Msg("get member status failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
	if status == models.MemberStatusPending {
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.MembershipRequired, "Onboarding must be completed first")
	}

	allowed, err := h.resolver.HasServerPermission(c.Context(), guildID, userID, permissions.ManageCategories)
	if err != nil {
		log.Error().Err(err).Str("handler", "category").Msg("permission check failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
	if !allowed {
		return httputil.Fail(c, fiber.StatusForbidden, apierrors.MissingPermissions, "You do not have the required permissions")
	}
	return nil
}

// ListCategories handles GET /api/v1/guilds/:guildID/categories.
func (h *CategoryHandler) ListCategories(c fiber.Ctx) error {
	_, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	cats, err := h.categories.List(c, guildID)
	if err != nil {
		log.Error().Err(err).Str("handler", "category").Msg("list categories failed")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}

	result := make([]models.Category, len(cats))
	for i := range cats {
		result[i] = toCategoryModel(&cats[i])
	}
	return httputil.Success(c, result)
}

// CreateCategory handles POST /api/v1/guilds/:guildID/categories.
func (h *CategoryHandler) CreateCategory(c fiber.Ctx) error {
	guildID, err := uuid.Parse(c.Params("guildID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid guild ID format")
	}

	var body models.CreateCategoryRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	name, err := category.ValidateNameRequired(body.Name)
	if err != nil {
		return mapCategoryError(c, err)
	}

	cat, err := h.categories.Create(c, category.CreateParams{GuildID: guildID, Name: name}, h.maxCategories)
	if err != nil {
		return mapCategoryError(c, err)
	}

	return httputil.SuccessStatus(c, fiber.StatusCreated, toCategoryModel(cat))
}

// UpdateCategory handles PATCH /api/v1/categories/:categoryID.
func (h *CategoryHandler) UpdateCategory(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	id, err := uuid.Parse(c.Params("categoryID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid category ID format")
	}

	existing, err := h.categories.GetByID(c, id)
	if err != nil {
		return mapCategoryError(c, err)
	}
	if err := h.requireManageCategories(c, userID, existing.GuildID); err != nil {
		return err
	}

	var body models.UpdateCategoryRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.InvalidBody, "Invalid request body")
	}

	if err := category.ValidateName(body.Name); err != nil {
		return mapCategoryError(c, err)
	}
	if err := category.ValidatePosition(body.Position); err != nil {
		return mapCategoryError(c, err)
	}

	cat, err := h.categories.Update(c, id, category.UpdateParams{
		Name:     body.Name,
		Position: body.Position,
	})
	if err != nil {
		return mapCategoryError(c, err)
	}

	return httputil.Success(c, toCategoryModel(cat))
}

// DeleteCategory handles DELETE /api/v1/categories/:categoryID.
func (h *CategoryHandler) DeleteCategory(c fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return httputil.Fail(c, fiber.StatusUnauthorized, apierrors.Unauthorised, "Missing user identity")
	}

	id, err := uuid.Parse(c.Params("categoryID"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, "Invalid category ID format")
	}

	existing, err := h.categories.GetByID(c, id)
	if err != nil {
		return mapCategoryError(c, err)
	}
	if err := h.requireManageCategories(c, userID, existing.GuildID); err != nil {
		return err
	}

	if err := h.categories.Delete(c, id); err != nil {
		return mapCategoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// toCategoryModel converts the internal category to the protocol response type.
func toCategoryModel(cat *category.Category) models.Category {
	return models.Category{
		ID:        cat.ID.String(),
		GuildID:   cat.GuildID.String(),
		Name:      cat.Name,
		Position:  cat.Position,
		CreatedAt: cat.CreatedAt.Format(time.RFC3339),
		UpdatedAt: cat.UpdatedAt.Format(time.RFC3339),
	}
}

// mapCategoryError converts category-layer errors to appropriate HTTP responses.
func mapCategoryError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, category.ErrNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, apierrors.UnknownCategory, "Category not found")
	case errors.Is(err, category.ErrNameLength):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, err.Error())
	case errors.Is(err, category.ErrInvalidPosition):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.ValidationError, err.Error())
	case errors.Is(err, category.ErrAlreadyExists):
		return httputil.Fail(c, fiber.StatusConflict, apierrors.AlreadyExists, err.Error())
	case errors.Is(err, category.ErrMaxCategoriesReached):
		return httputil.Fail(c, fiber.StatusBadRequest, apierrors.MaxCategoriesReached, err.Error())
	default:
		log.Error().Err(err).Str("handler", "category").Msg("unhandled category service error")
		return httputil.Fail(c, fiber.StatusInternalServerError, apierrors.InternalError, "An internal error occurred")
	}
}
