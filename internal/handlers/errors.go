package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/services"
	"ledger_backend/pkg/utils"
)

// respondServiceError maps service errors onto API errors. Anything
// unrecognised is logged and reported as a 500 with a generic message.
func respondServiceError(c *gin.Context, err error, op, failure string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.RespondValidationFailed(c, verr.Error(), verr.Fields)
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Customer not found.", err.Error()))
	case errors.Is(err, services.ErrUserNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "User not found.", err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid credentials.", err.Error()))
	case errors.Is(err, services.ErrAccountDisabled):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "User account is disabled.", err.Error()))
	default:
		utils.LogError(err, op)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, failure, "Internal error"))
	}
}

// bindJSON binds the request body and answers 400 with field errors on failure.
func bindJSON(c *gin.Context, dst interface{}, op string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.LogDebug(op+": failed to bind JSON", map[string]interface{}{"error": err.Error()})
		utils.RespondValidationFailed(c, "Invalid request payload.", utils.BindingErrorFields(err))
		return false
	}
	return true
}

// int64Param reads a positive integer path parameter.
func int64Param(c *gin.Context, name, label string) (int64, bool) {
	id, ok := utils.StrToPositiveInt64(c.Param(name))
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid "+label+" ID format.", "'"+c.Param(name)+"' is not a valid ID"))
		return 0, false
	}
	return id, true
}
