package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecolearn-go-api/internal/config"
	"github.com/noah-isme/ecolearn-go-api/internal/database"
	"github.com/noah-isme/ecolearn-go-api/internal/handler"
	"github.com/noah-isme/ecolearn-go-api/internal/impact"
	"github.com/noah-isme/ecolearn-go-api/internal/middleware"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
	"github.com/noah-isme/ecolearn-go-api/internal/router"
	"github.com/noah-isme/ecolearn-go-api/internal/service"
	"github.com/noah-isme/ecolearn-go-api/pkg/assessor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.LedgerEntry{},
		&models.ActionSubmission{},
		&models.LearningPath{},
		&models.Quiz{},
		&models.EcoTask{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if err := database.SeedCatalog(db); err != nil {
		log.Fatalf("failed to seed activity catalog: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	converter := impact.NewConverter(cfg.ImpactRatios)

	ledgerRepo := repository.NewLedgerRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	publisher := service.NewAwardPublisher(natsConn, cfg.AwardSubject, redisClient, cfg.AwardStream, logger)
	ledgerService := service.NewLedgerService(ledgerRepo, studentRepo, publisher, cfg.StorageTimeout, logger)
	completionService := service.NewCompletionService(catalogRepo, ledgerRepo, ledgerService, converter, validate, logger)

	var assess assessor.Assessor
	if cfg.OpenAIAPIKey != "" {
		openaiAssessor, err := assessor.NewOpenAIAssessor(assessor.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			MaxPoints: cfg.MaxAutoPoints,
			Logger:    logger,
		})
		if err != nil {
			log.Fatalf("failed to create assessor: %v", err)
		}
		assess = openaiAssessor
	} else {
		logger.Warn().Msg("no openai api key configured, submissions will wait for human review")
	}

	reviewService := service.NewReviewService(submissionRepo, studentRepo, ledgerService, assess, service.ReviewConfig{
		AutoApproveThreshold: cfg.AutoApproveThreshold,
		MaxAutoPoints:        cfg.MaxAutoPoints,
	}, validate, logger)
	rankService := service.NewRankService(ledgerRepo, studentRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	impactService := service.NewImpactService(ledgerRepo, studentRepo, converter, logger)

	completionHandler := handler.NewCompletionHandler(completionService, logger)
	submissionHandler := handler.NewSubmissionHandler(reviewService, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)
	statsHandler := handler.NewStatsHandler(impactService, rankService, logger)
	adminHandler := handler.NewAdminHandler(ledgerService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CompletionHandler: completionHandler,
		SubmissionHandler: submissionHandler,
		ReviewHandler:     reviewHandler,
		StatsHandler:      statsHandler,
		AdminHandler:      adminHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
