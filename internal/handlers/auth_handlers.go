package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/models"
	"ledger_backend/internal/services"
	"ledger_backend/pkg/utils"
)

// AuthHandler serves sign-in and token authentication.
type AuthHandler struct {
	authService  services.AuthService
	tokenService services.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService, ts services.TokenService) *AuthHandler {
	return &AuthHandler{authService: as, tokenService: ts}
}

// SignIn exchanges email and password for a token pair.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var creds models.Credentials
	if !bindJSON(c, &creds, "SignIn") {
		return
	}

	result, err := h.authService.SignIn(c.Request.Context(), creds)
	if err != nil {
		respondServiceError(c, err, "SignIn: Error from authService.SignIn", "Failed to sign in.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Authenticate reports whether the token in the path is a live access token.
// Unexpected failures are reported as 400 rather than 500.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	token := c.Param("token")
	user, err := h.tokenService.Validate(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Token not found.", err.Error()))
		case errors.Is(err, services.ErrTokenExpired):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token has expired.", err.Error()))
		default:
			utils.LogError(err, "Authenticate: Error from tokenService.Validate")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Token could not be authenticated.", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Authenticated",
		"user":    user,
	})
}
