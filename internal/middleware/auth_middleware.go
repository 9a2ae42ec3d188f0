package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/models"
	"ledger_backend/internal/services"
	"ledger_backend/pkg/utils"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userID"
	ContextUser   = "user"
)

// AuthMiddleware requires "Authorization: Bearer <access token>" and checks
// the token against the stored token record.
func AuthMiddleware(tokens services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication credentials were not provided.", "Authorization header required"))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid authorization header format.", "Use Bearer <token>"))
			return
		}

		user, err := tokens.Validate(c.Request.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token has expired.", err.Error()))
			case errors.Is(err, services.ErrTokenNotFound), errors.Is(err, services.ErrValidation):
				utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token.", err.Error()))
			default:
				utils.LogError(err, "AuthMiddleware: token validation failed")
				utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to authenticate request.", "Internal error"))
			}
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, *user)
		c.Next()
	}
}

// StaffOnly rejects authenticated users whose account is not staff.
// AuthMiddleware must run first.
func StaffOnly(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(ContextUserID)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication credentials were not provided.", "Missing user ID in context"))
			return
		}

		user, err := auth.GetUser(c.Request.Context(), userID.(int64))
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not found.", err.Error()))
				return
			}
			utils.LogError(err, "StaffOnly: failed to load user")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to authorize request.", "Internal error"))
			return
		}
		if !isStaff(user) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You do not have permission to perform this action.", "Staff account required"))
			return
		}
		c.Next()
	}
}

func isStaff(u *models.User) bool { return u.IsActive && u.IsStaff }
