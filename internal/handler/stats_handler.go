package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecolearn-go-api/internal/service"
	"github.com/noah-isme/ecolearn-go-api/internal/utils"
)

// StatsHandler serves derived metrics: impact totals, rank and leaderboards.
type StatsHandler struct {
	impact service.ImpactService
	rank   service.RankService
	logger zerolog.Logger
}

// NewStatsHandler builds a stats handler instance.
func NewStatsHandler(impact service.ImpactService, rank service.RankService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		impact: impact,
		rank:   rank,
		logger: logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/impact", h.impactTotals)
	router.Get("/rank", h.rankPosition)
	router.Get("/leaderboard", h.leaderboard)
}

func (h *StatsHandler) impactTotals(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupByKind := c.QueryBool("by_kind")
	response, err := h.impact.ImpactFor(c.Context(), studentID, groupByKind)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "impact retrieved", response)
}

func (h *StatsHandler) rankPosition(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	scope := scopeFromQuery(c)
	response, err := h.rank.Rank(c.Context(), studentID, scope)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rank retrieved", response)
}

func (h *StatsHandler) leaderboard(c *fiber.Ctx) error {
	scope := scopeFromQuery(c)
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	response, err := h.rank.Leaderboard(c.Context(), scope, limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "leaderboard retrieved", response)
}

func scopeFromQuery(c *fiber.Ctx) service.Scope {
	return service.Scope{
		Window:         c.Query("window"),
		EducationLevel: c.Query("education_level"),
	}
}

func (h *StatsHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrInvalidScope):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid window or education level")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
