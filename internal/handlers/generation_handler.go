package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck-app/flashcard-service/internal/services"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
)

type GenerationHandler struct {
	BaseHandler
	generationService services.GenerationService
}

func NewGenerationHandler(generationService services.GenerationService, logger utils.Logger) *GenerationHandler {
	return &GenerationHandler{
		BaseHandler:       NewBaseHandler(logger),
		generationService: generationService,
	}
}

// Generate runs the flashcard generation pipeline for one upload. The request
// blocks until generation finishes; progress is observable on the event stream.
func (h *GenerationHandler) Generate(c *gin.Context) {
	uploadID := h.parseIDParam(c, "id")
	if uploadID == 0 {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Generation requested", "upload_id", uploadID, "user_id", user.ID)

	resp, err := h.generationService.Generate(c.Request.Context(), uploadID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
