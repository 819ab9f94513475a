package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/auth"
	"github.com/flashdeck-app/flashcard-service/internal/events"
	"github.com/flashdeck-app/flashcard-service/internal/llm"
	"github.com/flashdeck-app/flashcard-service/internal/pdfext"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/storage"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

// ServiceManagerConfig holds the settings services need beyond their collaborators.
type ServiceManagerConfig struct {
	OllamaModel      string
	ExtractPageLimit int
	DefaultTimeout   time.Duration
}

// Dependencies bundles the external collaborators injected into the services.
type Dependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	JWT       *auth.JWT
	Files     storage.FileStore
	Extractor pdfext.TextExtractor
	Chat      llm.ChatClient
	Publisher events.EventPublisher
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	authService       AuthService
	uploadService     UploadService
	cardService       CardService
	generationService GenerationService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	if config.ExtractPageLimit <= 0 {
		config.ExtractPageLimit = 5
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	sm.authService = NewAuthService(sm.deps.Repo, sm.deps.DB, sm.deps.Logger, sm.deps.Validator, sm.deps.JWT)
	sm.uploadService = NewUploadService(sm.deps.Repo, sm.deps.DB, sm.deps.Logger, sm.deps.Validator, sm.deps.Files, sm.deps.Publisher)
	sm.cardService = NewCardService(sm.deps.Repo, sm.deps.DB, sm.deps.Logger, sm.deps.Validator)
	sm.generationService = NewGenerationService(sm.deps.Repo, sm.deps.Logger, sm.deps.Files, sm.deps.Extractor, sm.deps.Chat, sm.deps.Publisher, sm.config.OllamaModel, sm.config.ExtractPageLimit)

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Upload() UploadService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.uploadService
}

func (sm *serviceManager) Card() CardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.cardService
}

func (sm *serviceManager) Generation() GenerationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.generationService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.deps.Repo.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}
