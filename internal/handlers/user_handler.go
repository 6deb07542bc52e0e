package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/services"
)

// UserHandler handles user management requests.
type UserHandler struct {
	userService services.UserServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest represents the admin provisioning payload.
type CreateUserRequest struct {
	Username    string          `json:"username" binding:"required,max=150"`
	Email       string          `json:"email" binding:"required,email,max=255"`
	Department  string          `json:"department" binding:"required,max=100"`
	Role        models.UserRole `json:"role" binding:"required,user_role"`
	PhoneNumber *string         `json:"phone_number" binding:"omitempty,max=20"`
}

// UpdateUserRequest represents the partial update payload for a user.
type UpdateUserRequest struct {
	Email       *string          `json:"email" binding:"omitempty,email,max=255"`
	PhoneNumber *string          `json:"phone_number" binding:"omitempty,max=20"`
	Department  *string          `json:"department" binding:"omitempty,max=100"`
	Role        *models.UserRole `json:"role" binding:"omitempty,user_role"`
}

// CreateUser provisions a new account with a generated temporary password.
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.userService.CreateUser(actor, services.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Department:  req.Department,
		Role:        req.Role,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":               userJSON(result.User),
		"temporary_password": result.TemporaryPassword,
		"email_sent":         result.EmailSent,
	})
}

// ListUsers returns all users, paginated.
func (h *UserHandler) ListUsers(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	users, err := h.userService.ListUsers(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns a single user by ID.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

// UpdateUser applies a partial update to a user account.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.UpdateUser(actor, id, services.UserUpdate{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Department:  req.Department,
		Role:        req.Role,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

// DeleteUser removes a user account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if actor.ID == id {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "You cannot delete your own account"))
		return
	}

	if err := h.userService.DeleteUser(actor, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
