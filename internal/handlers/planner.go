package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reminddo/internal/ai"
	"reminddo/internal/logging"
)

type PlanHandler struct {
	planner ai.Planner
	logger  *zap.Logger
}

func NewPlanHandler(planner ai.Planner, logger *zap.Logger) *PlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanHandler{planner: planner, logger: logger}
}

type planRequest struct {
	Tasks  []ai.TodoItem `json:"tasks"`
	Prompt string        `json:"prompt"`
}

// GeneratePlan asks the planner for a day plan. Nothing is stored; the client accepts
// the suggestion through bulk-store.
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req planRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if len(req.Tasks) == 0 && req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide tasks or a prompt."})
		return
	}

	plan, err := h.planner.GenerateDailyPlan(c.Request.Context(), ai.FormatTodoList(req.Prompt, req.Tasks))
	if err != nil {
		message := ai.MsgInternalError
		var aiErr *ai.Error
		if errors.As(err, &aiErr) {
			message = aiErr.Message
		}
		h.logger.Warn("ai plan failed", logging.UserID(userID), logging.Err(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}
