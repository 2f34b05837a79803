package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadwatch/backend/internal/config"
	httpdelivery "github.com/roadwatch/backend/internal/delivery/http"
	"github.com/roadwatch/backend/internal/delivery/ws"
	"github.com/roadwatch/backend/internal/detector"
	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
	"github.com/roadwatch/backend/internal/pipeline"
	"github.com/roadwatch/backend/internal/repository/postgres"
	"github.com/roadwatch/backend/internal/service"
	"github.com/roadwatch/backend/internal/video"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting roadwatch backend (%s)", cfg.Environment)
	log.Printf("Detector sidecar: %s", cfg.DetectorURL)
	log.Printf("Database: %s", cfg.DatabaseURLForLog())

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo domain.IncidentRepository
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil || cfg.DatabaseURL == "" {
		log.Printf("Warning: could not connect to database: %v", err)
		log.Println("Running with in-memory incident store")
		repo = postgres.NewMockRepository()
	} else {
		defer pool.Close()
		pgRepo := postgres.NewPostgresRepository(pool)
		if err := pgRepo.Init(ctx); err != nil {
			log.Printf("Warning: schema init failed: %v", err)
			log.Println("Running with in-memory incident store")
			repo = postgres.NewMockRepository()
		} else {
			log.Println("Connected to PostgreSQL")
			repo = pgRepo
		}
	}

	// Dependency injection: collaborators
	m := metrics.New()
	hub := ws.NewHub()
	hub.OnClientChange = func(count int) { m.ActiveWSClients.Store(int64(count)) }

	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.WeatherURL, cfg.RetryAttempts, cfg.RetryBase)
	locatorSvc := service.NewLocatorService(cfg.OverpassURL, cfg.SearchRadiusMeters, cfg.RetryAttempts, cfg.RetryBase)
	clipExtractor := video.ClipExtractor{OutDir: cfg.UploadDir}
	mailer := service.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, cfg.SMTPPassword, cfg.SenderEmail, cfg.ReceiverEmail)
	responder := service.NewResponder(weatherSvc, locatorSvc, clipExtractor, repo, nil, cfg.Tuning.SpeedThreshold)
	detectorClient := detector.NewClient(cfg.DetectorURL)

	pipe := pipeline.New(cfg, detectorClient, responder, mailer, nil, hub, m)

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RoadWatch API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // detect runs the whole pipeline
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	handler := httpdelivery.NewHandler(pipe, repo)
	httpdelivery.SetupRoutes(app, handler, m.Handler())

	// Live status stream on its own listener
	go func() {
		log.Printf("Status stream listening on :%s/ws", cfg.WSPort)
		if err := hub.Serve(cfg.WSPort); err != nil {
			log.Printf("Status stream server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Let in-flight incident responses finish delivering, bounded.
	done := make(chan struct{})
	go func() {
		responder.WaitBackground()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.ResponderAwait):
		log.Println("Timed out waiting for background incident work")
	}

	hub.CloseAll()
	log.Println("Server exited gracefully")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
