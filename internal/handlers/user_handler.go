package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

// UserHandler serves account info and the admin user management endpoints.
type UserHandler struct {
	BaseHandler
	userRepo  repositories.UserRepository
	validator *validator.Validator
}

func NewUserHandler(userRepo repositories.UserRepository, validator *validator.Validator, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
		validator:   validator,
	}
}

// Me returns the authenticated user's own account.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// List returns all accounts, admin only.
func (h *UserHandler) List(c *gin.Context) {
	filters := repositories.UserFilters{
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if q := c.Query("q"); q != "" {
		filters.Query = &q
	}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		if role != models.RoleUser && role != models.RoleAdmin {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid role filter"})
			return
		}
		filters.Role = &role
	}

	users, total, err := h.userRepo.List(c.Request.Context(), nil, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
	})
}

// Get returns one account by id, admin only.
func (h *UserHandler) Get(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "user not found"})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateRole changes an account's role, admin only. Admins cannot demote
// themselves, which keeps at least one admin around.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	caller, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req validator.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	role := models.UserRole(req.Role)
	if caller.ID == id && role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Cannot demote own account"})
		return
	}

	if err := h.userRepo.UpdateRole(c.Request.Context(), nil, id, role); err != nil {
		if repositories.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "user not found"})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Role updated", "user_id", id, "role", role, "by", caller.ID)
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}
