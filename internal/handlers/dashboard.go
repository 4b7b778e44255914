package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"reminddo/internal/services"
)

type DashboardProvider interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*services.Dashboard, error)
}

type DashboardHandler struct {
	dashboard DashboardProvider
	moods     services.MoodService
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard DashboardProvider, moods services.MoodService, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{dashboard: dashboard, moods: moods, logger: logger}
}

// Dashboard returns the user's tasks ordered by start time and the ten latest moods.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	d, err := h.dashboard.Dashboard(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, h.logger, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DashboardHandler) RecordMood(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input services.MoodInput
	if !bindJSON(c, &input) {
		return
	}

	mood, err := h.moods.Record(c.Request.Context(), userID, input)
	if err != nil {
		serviceError(c, h.logger, "record_mood", err)
		return
	}
	c.JSON(http.StatusCreated, mood)
}
