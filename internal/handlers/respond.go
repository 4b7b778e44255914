package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"reminddo/internal/logging"
	"reminddo/internal/middleware"
	"reminddo/internal/services"
)

// currentUser reads the id set by the auth middleware. It writes the 401 itself when missing.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body. A body that is not JSON is a 400; a field of the wrong type or a
// failed binding rule is a 422 with per-field messages.
func bindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}

	var verrs playground.ValidationErrors
	if errors.As(err, &verrs) {
		validationFailed(c, services.FieldErrors(verrs))
		return false
	}
	if fields, ok := services.TypeErrorFields(err); ok {
		validationFailed(c, fields)
		return false
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid request format",
	})
	return false
}

func validationFailed(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "validation failed",
		"fields": fields,
	})
}

// serviceError maps service sentinels to status codes; anything unrecognised is logged and reported as a 500.
func serviceError(c *gin.Context, logger *zap.Logger, operation string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		validationFailed(c, verr.Fields)
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Error("request failed", logging.Operation(operation), logging.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
	}
}
