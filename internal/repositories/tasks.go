package repositories

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"reminddo/internal/models"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func preloadChecklist(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// CreateMany inserts the tasks together with their checklist items.
func (r *TaskRepository) CreateMany(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&tasks).Error; err != nil {
		return fmt.Errorf("create tasks: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Preload("ChecklistItems", preloadChecklist).
		First(&task, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

// ListByUser returns the user's tasks ordered by start time, undated tasks last.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("ChecklistItems", preloadChecklist).
		Where("user_id = ?", userID).
		Order("CASE WHEN start_time IS NULL THEN 1 ELSE 0 END, start_time ASC, created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindOwnedByIDs returns the subset of ids that exist and belong to userID.
func (r *TaskRepository) FindOwnedByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

// Update writes the given columns and leaves every other column untouched.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(task).Updates(fields).Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes the task and its checklist items.
func (r *TaskRepository) Delete(ctx context.Context, task *models.Task) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", task.ID).Delete(&models.ChecklistItem{}).Error; err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	if err := db.Delete(task).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) DeleteChecklistItems(ctx context.Context, taskID uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.ChecklistItem{}).Error
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

func (r *TaskRepository) CreateChecklistItems(ctx context.Context, items []models.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("create checklist: %w", err)
	}
	return nil
}

// FindChecklistItem returns the item and the id of the user owning its task.
func (r *TaskRepository) FindChecklistItem(ctx context.Context, id uuid.UUID) (*models.ChecklistItem, uuid.UUID, error) {
	var item models.ChecklistItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, uuid.Nil, notFound(err)
	}

	var task models.Task
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&task, "id = ?", item.TaskID).Error; err != nil {
		return nil, uuid.Nil, notFound(err)
	}
	return &item, task.UserID, nil
}

func (r *TaskRepository) SetChecklistItemCompleted(ctx context.Context, item *models.ChecklistItem, completed bool) error {
	if err := r.db.WithContext(ctx).Model(item).Update("is_completed", completed).Error; err != nil {
		return fmt.Errorf("update checklist item: %w", err)
	}
	return nil
}
