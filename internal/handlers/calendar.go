package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"reminddo/internal/calendar"
	"reminddo/internal/logging"
	"reminddo/internal/services"
)

type CalendarProvider interface {
	ConnectURL(userID uuid.UUID) (string, error)
	HandleCallback(ctx context.Context, state, code string) (uuid.UUID, error)
	TodayEvents(ctx context.Context, userID uuid.UUID) ([]calendar.Event, error)
	ConnectICloud(ctx context.Context, userID uuid.UUID, in services.ICloudInput) error
}

type CalendarHandler struct {
	calendar    CalendarProvider
	frontendURL string
	logger      *zap.Logger
}

// NewCalendarHandler builds the handler. frontendURL is where the OAuth callback sends the browser back to.
func NewCalendarHandler(provider CalendarProvider, frontendURL string, logger *zap.Logger) *CalendarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarHandler{calendar: provider, frontendURL: frontendURL, logger: logger}
}

// GoogleRedirect returns the consent URL. The client navigates to it itself since
// the bearer token cannot follow a browser redirect.
func (h *CalendarHandler) GoogleRedirect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	u, err := h.calendar.ConnectURL(userID)
	if errors.Is(err, services.ErrCalendarDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar is not configured"})
		return
	}
	if err != nil {
		serviceError(c, h.logger, "google_redirect", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

// GoogleCallback finishes the OAuth flow and sends the browser back to the dashboard with an outcome flag.
func (h *CalendarHandler) GoogleCallback(c *gin.Context) {
	if oauthErr := c.Query("error"); oauthErr != "" {
		h.redirectDashboard(c, "error", "Failed to connect Google Calendar: "+oauthErr)
		return
	}

	userID, err := h.calendar.HandleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		h.logger.Warn("google callback failed", logging.Err(err))
		h.redirectDashboard(c, "error", "Failed to connect Google Calendar: "+err.Error())
		return
	}
	h.logger.Info("google callback completed", logging.UserID(userID))
	h.redirectDashboard(c, "connected", "Google Calendar connected successfully!")
}

func (h *CalendarHandler) redirectDashboard(c *gin.Context, status, message string) {
	q := url.Values{}
	q.Set("calendar", status)
	q.Set("message", message)
	c.Redirect(http.StatusFound, h.frontendURL+"/dashboard?"+q.Encode())
}

func (h *CalendarHandler) Events(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	events, err := h.calendar.TodayEvents(c.Request.Context(), userID)
	if errors.Is(err, services.ErrReconnectRequired) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Google Calendar session expired. Please reconnect.",
			"reconnect": true,
		})
		return
	}
	if err != nil {
		serviceError(c, h.logger, "calendar_events", err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *CalendarHandler) ConnectICloud(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input services.ICloudInput
	if !bindJSON(c, &input) {
		return
	}

	if err := h.calendar.ConnectICloud(c.Request.Context(), userID, input); err != nil {
		serviceError(c, h.logger, "connect_icloud", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "iCloud Calendar connected successfully!"})
}
