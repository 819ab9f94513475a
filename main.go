package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/flashdeck-app/flashcard-service/internal/auth"
	"github.com/flashdeck-app/flashcard-service/internal/config"
	"github.com/flashdeck-app/flashcard-service/internal/events"
	"github.com/flashdeck-app/flashcard-service/internal/handlers"
	"github.com/flashdeck-app/flashcard-service/internal/llm"
	"github.com/flashdeck-app/flashcard-service/internal/pdfext"
	"github.com/flashdeck-app/flashcard-service/internal/repositories/postgres"
	"github.com/flashdeck-app/flashcard-service/internal/services"
	"github.com/flashdeck-app/flashcard-service/internal/storage"
	"github.com/flashdeck-app/flashcard-service/internal/streaming"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
	"github.com/flashdeck-app/flashcard-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	// Initialize repositories
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})

	// Initialize validator
	validator := validator.New()

	// Token signer
	jwt, err := auth.New(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize token signer: %v", err)
	}

	// File storage
	files, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize file store: %v", err)
	}

	// Event publisher: kafka when brokers are configured, in-process otherwise
	var publisher events.EventPublisher
	if cfg.KafkaBrokers != "" {
		publisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize kafka publisher: %v", err)
		}
	} else {
		publisher = events.NewGoChannelPublisher(cfg.KafkaTopic, slogLogger)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		DB:        db,
		Repo:      repo,
		Logger:    slogLogger,
		Validator: validator,
		JWT:       jwt,
		Files:     files,
		Extractor: pdfext.NewPDFExtractor(),
		Chat:      llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout),
		Publisher: publisher,
	}, services.ServiceManagerConfig{
		OllamaModel:      cfg.OllamaModel,
		ExtractPageLimit: cfg.ExtractPageLimit,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Stream session registry: redis-backed when available so exclusivity
	// holds across restarts, in-memory otherwise
	var registry streaming.Registry = streaming.NewMemoryRegistry()
	if redisClient != nil {
		registry = streaming.NewRedisRegistry(redisClient)
	}
	streamer := streaming.NewStreamer(registry, repo, slogLogger, cfg.StreamPollInterval)

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, repo.User(), streamer)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Shutdown services (closes publisher and database)
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
