package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"reminddo/internal/cache"
	"reminddo/internal/logging"
	"reminddo/internal/models"
)

const taskListTTL = 5 * time.Minute

// CachedTaskService caches each user's task list and drops it whenever one of
// their tasks changes. Cache failures never fail the request.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	logger      *zap.Logger
}

func NewCachedTaskService(taskService TaskService, c cache.Cache, logger *zap.Logger) *CachedTaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTaskService{
		taskService: taskService,
		cache:       c,
		logger:      logger,
	}
}

func taskListKey(userID uuid.UUID) string {
	return fmt.Sprintf("tasks:%s", userID.String())
}

func (s *CachedTaskService) ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	key := taskListKey(userID)

	var cached []models.Task
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.taskService.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, tasks, taskListTTL); err != nil {
		s.logger.Warn("caching task list failed", logging.UserID(userID), logging.Err(err))
	}
	return tasks, nil
}

func (s *CachedTaskService) CreateTasks(ctx context.Context, userID uuid.UUID, in CreateTaskInput) ([]models.Task, error) {
	tasks, err := s.taskService.CreateTasks(ctx, userID, in)
	if err == nil {
		s.invalidate(userID)
	}
	return tasks, err
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskService.UpdateTask(ctx, userID, taskID, in)
	if err == nil {
		s.invalidate(userID)
	}
	return task, err
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	err := s.taskService.DeleteTask(ctx, userID, taskID)
	if err == nil {
		s.invalidate(userID)
	}
	return err
}

func (s *CachedTaskService) ToggleChecklistItem(ctx context.Context, userID, itemID uuid.UUID, completed bool) (*models.ChecklistItem, error) {
	item, err := s.taskService.ToggleChecklistItem(ctx, userID, itemID, completed)
	if err == nil {
		s.invalidate(userID)
	}
	return item, err
}

func (s *CachedTaskService) BulkSchedule(ctx context.Context, userID uuid.UUID, entries []ScheduleEntry) (int, error) {
	n, err := s.taskService.BulkSchedule(ctx, userID, entries)
	if err == nil && n > 0 {
		s.invalidate(userID)
	}
	return n, err
}

func (s *CachedTaskService) BulkStore(ctx context.Context, userID uuid.UUID, inputs []BulkTaskInput) ([]models.Task, error) {
	tasks, err := s.taskService.BulkStore(ctx, userID, inputs)
	if err == nil {
		s.invalidate(userID)
	}
	return tasks, err
}

func (s *CachedTaskService) invalidate(userID uuid.UUID) {
	if err := s.cache.Delete(taskListKey(userID)); err != nil {
		s.logger.Warn("task list invalidation failed", logging.UserID(userID), logging.Err(err))
	}
}
