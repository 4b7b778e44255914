package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reminddo/internal/logging"
	"reminddo/internal/services"
)

type LogoutHandler struct {
	authService services.AuthService
	logger      *zap.Logger
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func NewLogoutHandler(authService services.AuthService, logger *zap.Logger) *LogoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogoutHandler{authService: authService, logger: logger}
}

// Logout revokes the refresh token. Unknown tokens still get a 200 so logout is idempotent.
func (h *LogoutHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil && !errors.Is(err, services.ErrInvalidToken) {
		h.logger.Warn("logout failed", logging.Err(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}
