package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/service"
	"github.com/noah-isme/ecolearn-go-api/internal/utils"
)

// ReviewHandler exposes the reviewer queue and decision endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/pending", h.pending)
	router.Post("/:id/resolve", h.resolve)
}

func (h *ReviewHandler) pending(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	queue, err := h.service.PendingQueue(c.Context(), limit, offset)
	if err != nil {
		return h.handleError(c, err)
	}

	meta := map[string]int{"limit": limit, "offset": offset, "count": len(queue)}
	return utils.SendSuccessWithMeta(c, "pending submissions retrieved", queue, meta)
}

func (h *ReviewHandler) resolve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reviewerID := userIDFromContext(c)
	if reviewerID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Resolve(c.Context(), id, reviewerID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission resolved", submission)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAlreadyResolved):
		return utils.SendError(c, fiber.StatusConflict, "submission already resolved")
	case errors.Is(err, service.ErrPointsRequired):
		return utils.SendError(c, fiber.StatusBadRequest, "points required to approve without an assessment")
	case errors.Is(err, service.ErrStorageTimeout):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "storage timeout, please retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
