package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reminddo/internal/services"
)

type TaskHandler struct {
	taskService services.TaskService
	logger      *zap.Logger
}

func NewTaskHandler(taskService services.TaskService, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{taskService: taskService, logger: logger}
}

// CreateTask stores one task, or one row per occurrence when a recurrence pattern expands.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input services.CreateTaskInput
	if !bindJSON(c, &input) {
		return
	}

	tasks, err := h.taskService.CreateTasks(c.Request.Context(), userID, input)
	if err != nil {
		serviceError(c, h.logger, "create_task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": tasks})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	var input services.UpdateTaskInput
	if !bindJSON(c, &input) {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, taskID, input)
	if err != nil {
		serviceError(c, h.logger, "update_task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		serviceError(c, h.logger, "delete_task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) ToggleChecklistItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	var input struct {
		IsCompleted *bool `json:"is_completed"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if input.IsCompleted == nil {
		validationFailed(c, map[string]string{"is_completed": "The is completed field is required."})
		return
	}

	item, err := h.taskService.ToggleChecklistItem(c.Request.Context(), userID, itemID, *input.IsCompleted)
	if err != nil {
		serviceError(c, h.logger, "toggle_checklist_item", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// BulkSchedule applies start/end times to existing tasks. Unknown or foreign ids are skipped.
func (h *TaskHandler) BulkSchedule(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input services.BulkScheduleRequest
	if !bindJSON(c, &input) {
		return
	}

	n, err := h.taskService.BulkSchedule(c.Request.Context(), userID, input.Tasks)
	if err != nil {
		serviceError(c, h.logger, "bulk_schedule", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tasks scheduled successfully", "updated": n})
}

// BulkStore creates tasks accepted from an AI plan.
func (h *TaskHandler) BulkStore(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input services.BulkStoreRequest
	if !bindJSON(c, &input) {
		return
	}

	tasks, err := h.taskService.BulkStore(c.Request.Context(), userID, input.Tasks)
	if err != nil {
		serviceError(c, h.logger, "bulk_store", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Tasks created successfully", "tasks": tasks})
}
