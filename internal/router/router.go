package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/ecolearn-go-api/internal/config"
	"github.com/noah-isme/ecolearn-go-api/internal/handler"
	"github.com/noah-isme/ecolearn-go-api/internal/middleware"
	"github.com/noah-isme/ecolearn-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CompletionHandler *handler.CompletionHandler
	SubmissionHandler *handler.SubmissionHandler
	ReviewHandler     *handler.ReviewHandler
	StatsHandler      *handler.StatsHandler
	AdminHandler      *handler.AdminHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Activity completion recorders
	if deps.CompletionHandler != nil {
		activities := app.Group("/api/v2/activities", jwtMiddleware)
		deps.CompletionHandler.Register(activities)
	}

	// Free-form action submissions. Rate limited: each report triggers an
	// AI assessment call.
	if deps.SubmissionHandler != nil {
		submissions := app.Group("/api/v2/submissions", jwtMiddleware, middleware.RateLimit("submissions", 20, time.Minute))
		deps.SubmissionHandler.Register(submissions)
	}

	// Reviewer queue & decisions
	if deps.ReviewHandler != nil {
		review := app.Group("/api/v2/review", jwtMiddleware, middleware.RequireRole("reviewer", "admin"))
		deps.ReviewHandler.Register(review)
	}

	// Derived metrics: impact, rank, leaderboard
	if deps.StatsHandler != nil {
		stats := app.Group("/api/v2/stats", jwtMiddleware)
		deps.StatsHandler.Register(stats)
	}

	// Ledger maintenance
	if deps.AdminHandler != nil {
		admin := app.Group("/api/v2/admin", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AdminHandler.Register(admin)
	}
}
