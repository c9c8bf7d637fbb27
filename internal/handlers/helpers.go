package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pharmacy_pos_backend/internal/middleware"
	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/services"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// currentUserID reads the authenticated user id set by AuthMiddleware.
// It writes a 401 and returns false when the id is missing.
func currentUserID(c *gin.Context) (int64, bool) {
	raw, exists := c.Get(middleware.ContextUserID)
	if !exists {
		utils.LogError(errors.New("userID not found in context"), "handler: userID not in context")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing user ID in context"))
		return 0, false
	}
	userID, ok := raw.(int64)
	if !ok || userID <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Invalid user ID in context"))
		return 0, false
	}
	return userID, true
}

// currentTenantID is the owner id that scopes shop data. Staff tokens carry
// their owner's id; everyone else is their own tenant.
func currentTenantID(c *gin.Context) (int64, bool) {
	if raw, exists := c.Get(middleware.ContextTenantID); exists {
		if tenantID, ok := raw.(int64); ok && tenantID > 0 {
			return tenantID, true
		}
	}
	return currentUserID(c)
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Role: models.Role(c.GetString(middleware.ContextUserRole))}, true
}

func parseIDParam(c *gin.Context, name, label string) (int64, bool) {
	id, err := utils.StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+label+" ID format.", c.Param(name)))
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = defaultPage
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func bindJSON(c *gin.Context, dst interface{}, op string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.LogError(err, op+": Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return false
	}
	return true
}

// respondServiceError maps a service error class to its HTTP response.
func respondServiceError(c *gin.Context, err error, op, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.LogWarn(op+": validation failed", map[string]interface{}{"error": err.Error(), "trace_id": c.GetString("trace_id")})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, capitalize(err.Error())+".", err.Error()))
	case errors.Is(err, services.ErrInsufficientStock):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInsufficientStock, "Insufficient stock.", err.Error()))
	case errors.Is(err, services.ErrConflict):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
	case errors.Is(err, services.ErrLimitExceeded):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeLimitExceeded, "Subscription plan limit reached.", err.Error()))
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You do not have permission to perform this action.", err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid email or password.", ""))
	default:
		utils.LogError(err, op+": Error from service", map[string]interface{}{
			"trace_id": c.GetString("trace_id"),
			"user_id":  utils.Int64ToStr(c.GetInt64(middleware.ContextUserID)),
		})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallback, "Internal error"))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
