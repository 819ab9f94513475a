package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/services"
	"github.com/flashdeck-app/flashcard-service/internal/streaming"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	uploadHandler     *UploadHandler
	cardHandler       *CardHandler
	generationHandler *GenerationHandler
	eventsHandler     *EventsHandler
	userHandler       *UserHandler
	authMiddleware    *AuthMiddleware

	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	userRepo repositories.UserRepository,
	streamer *streaming.Streamer,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		uploadHandler:     NewUploadHandler(serviceManager.Upload(), logger),
		cardHandler:       NewCardHandler(serviceManager.Card(), logger),
		generationHandler: NewGenerationHandler(serviceManager.Generation(), logger),
		eventsHandler:     NewEventsHandler(serviceManager.Auth(), streamer, logger),
		userHandler:       NewUserHandler(userRepo, validator, logger),
		authMiddleware:    NewAuthMiddleware(serviceManager.Auth()),
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Public auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", hm.authHandler.Register)
			auth.POST("/login", hm.authHandler.Login)
		}

		// Status event stream; authenticates itself via query token because
		// EventSource clients cannot set headers
		v1.GET("/events", hm.eventsHandler.Stream)

		// Authenticated routes
		authed := v1.Group("")
		authed.Use(hm.authMiddleware.RequireAuth())
		{
			authed.POST("/auth/password", hm.authHandler.ChangePassword)
			authed.GET("/users/me", hm.userHandler.Me)

			uploads := authed.Group("/uploads")
			{
				uploads.POST("", hm.uploadHandler.Create)
				uploads.GET("", hm.uploadHandler.List)
				uploads.GET("/:id", hm.uploadHandler.Get)
				uploads.DELETE("/:id", hm.uploadHandler.Delete)

				uploads.POST("/:id/generate", hm.generationHandler.Generate)

				uploads.POST("/:id/cards", hm.cardHandler.Create)
				uploads.GET("/:id/cards", hm.cardHandler.ListByUpload)
				uploads.GET("/:id/cards/export", hm.cardHandler.Export)
			}

			authed.DELETE("/cards/:id", hm.cardHandler.Delete)

			// Admin routes
			admin := authed.Group("/admin")
			admin.Use(hm.authMiddleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/users", hm.userHandler.List)
				admin.GET("/users/:id", hm.userHandler.Get)
				admin.PUT("/users/:id/role", hm.userHandler.UpdateRole)
			}
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "flashcard-service",
		})
	})
}
