package repositories

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"reminddo/internal/models"
)

type MoodRepository struct {
	db *gorm.DB
}

func NewMoodRepository(db *gorm.DB) *MoodRepository {
	return &MoodRepository{db: db}
}

func (r *MoodRepository) Create(ctx context.Context, mood *models.Mood) error {
	if err := r.db.WithContext(ctx).Create(mood).Error; err != nil {
		return fmt.Errorf("create mood: %w", err)
	}
	return nil
}

// Latest returns up to limit moods, newest first.
func (r *MoodRepository) Latest(ctx context.Context, userID uuid.UUID, limit int) ([]models.Mood, error) {
	var moods []models.Mood
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&moods).Error
	if err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	return moods, nil
}
