package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/service"
	"github.com/noah-isme/ecolearn-go-api/internal/utils"
)

// AdminHandler exposes ledger maintenance endpoints: manual adjustments and
// consistency reconciliation.
type AdminHandler struct {
	ledger    service.LedgerService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminHandler builds an admin handler instance.
func NewAdminHandler(ledger service.LedgerService, validate *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		validator: validate,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/adjustments", h.adjust)
	router.Post("/reconcile/:studentId", h.reconcile)
}

func (h *AdminHandler) adjust(c *fiber.Ctx) error {
	var payload dto.AdjustmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	result, err := h.ledger.AwardAdjustment(c.Context(), payload.StudentID, models.ActivityKind(payload.Kind), payload.ReferenceID, payload.Delta, payload.Reason)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("student_id", payload.StudentID).
		Str("reference_id", payload.ReferenceID).
		Int("delta", payload.Delta).
		Msg("manual adjustment recorded")

	return utils.SendSuccess(c, "adjustment recorded", result)
}

func (h *AdminHandler) reconcile(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.ledger.Reconcile(c.Context(), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "reconciliation completed", report)
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrInvalidActivityKind):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity kind")
	case errors.Is(err, service.ErrStorageTimeout):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "storage timeout, please retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
