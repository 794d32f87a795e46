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

// CompletionHandler records finished structured activities for the
// authenticated student.
type CompletionHandler struct {
	service service.CompletionService
	logger  zerolog.Logger
}

// NewCompletionHandler builds a completion handler instance.
func NewCompletionHandler(service service.CompletionService, logger zerolog.Logger) *CompletionHandler {
	return &CompletionHandler{
		service: service,
		logger:  logger.With().Str("component", "completion_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *CompletionHandler) Register(router fiber.Router) {
	router.Post("/modules/complete", h.completeModule)
	router.Post("/quizzes/complete", h.completeQuiz)
	router.Post("/tasks/complete", h.completeTask)
}

func (h *CompletionHandler) completeModule(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ModuleCompletionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.CompleteModule(c.Context(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module completion recorded", response)
}

func (h *CompletionHandler) completeQuiz(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.QuizCompletionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.CompleteQuiz(c.Context(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz completion recorded", response)
}

func (h *CompletionHandler) completeTask(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.TaskCompletionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.CompleteTask(c.Context(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task completion recorded", response)
}

func (h *CompletionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrIndexOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "module index out of range")
	case errors.Is(err, service.ErrAnswersOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "correct answers exceed question count")
	case errors.Is(err, service.ErrStorageTimeout):
		// Awards are idempotent; retrying the same request is safe.
		return utils.SendError(c, fiber.StatusServiceUnavailable, "storage timeout, please retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
