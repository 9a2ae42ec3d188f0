package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/models"
	"ledger_backend/internal/services"
)

// UserHandler serves /users/.
type UserHandler struct {
	authService services.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(as services.AuthService) *UserHandler {
	return &UserHandler{authService: as}
}

// ListUsers returns every user, passwords omitted.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "ListUsers: Error from authService.ListUsers", "Failed to fetch users.")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser registers a user and returns 201 with the stored record.
// The password is write-only.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var payload models.RegistrationPayload
	if !bindJSON(c, &payload, "CreateUser") {
		return
	}

	cmd, err := services.NewUserCommand(payload)
	if err != nil {
		respondServiceError(c, err, "CreateUser: invalid command", "Failed to create user.")
		return
	}
	user, err := h.authService.RegisterUser(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err, "CreateUser: Error from authService.RegisterUser", "Failed to create user.")
		return
	}
	c.JSON(http.StatusCreated, user)
}
