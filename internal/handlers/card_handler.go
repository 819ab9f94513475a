package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck-app/flashcard-service/internal/services"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
)

type CardHandler struct {
	BaseHandler
	cardService services.CardService
}

func NewCardHandler(cardService services.CardService, logger utils.Logger) *CardHandler {
	return &CardHandler{
		BaseHandler: NewBaseHandler(logger),
		cardService: cardService,
	}
}

// Create adds a manual flashcard to an upload.
func (h *CardHandler) Create(c *gin.Context) {
	uploadID := h.parseIDParam(c, "id")
	if uploadID == 0 {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req services.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	card, err := h.cardService.Create(c.Request.Context(), uploadID, &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, card)
}

// ListByUpload returns all cards of one upload.
func (h *CardHandler) ListByUpload(c *gin.Context) {
	uploadID := h.parseIDParam(c, "id")
	if uploadID == 0 {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	cards, err := h.cardService.ListByUpload(c.Request.Context(), uploadID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards": cards,
		"total": len(cards),
	})
}

// Delete removes a single flashcard.
func (h *CardHandler) Delete(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.cardService.Delete(c.Request.Context(), id, user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "flashcard deleted"})
}

// Export streams the upload's cards as an xlsx workbook.
func (h *CardHandler) Export(c *gin.Context) {
	uploadID := h.parseIDParam(c, "id")
	if uploadID == 0 {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Exporting flashcards", "upload_id", uploadID, "user_id", user.ID)

	data, filename, err := h.cardService.ExportXLSX(c.Request.Context(), uploadID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
