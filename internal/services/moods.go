package services

import (
	"context"
	"strings"

	"github.com/gofrs/uuid"

	"reminddo/internal/models"
	"reminddo/internal/repositories"
)

const dashboardMoodLimit = 10

type MoodInput struct {
	Rating int     `json:"rating" binding:"required,min=1,max=5"`
	Note   *string `json:"note" binding:"omitempty,max=255"`
}

type MoodService interface {
	Record(ctx context.Context, userID uuid.UUID, in MoodInput) (*models.Mood, error)
	Latest(ctx context.Context, userID uuid.UUID) ([]models.Mood, error)
}

type MoodServiceImpl struct {
	moods *repositories.MoodRepository
}

func NewMoodService(moods *repositories.MoodRepository) *MoodServiceImpl {
	return &MoodServiceImpl{moods: moods}
}

func (s *MoodServiceImpl) Record(ctx context.Context, userID uuid.UUID, in MoodInput) (*models.Mood, error) {
	if in.Note != nil {
		trimmed := strings.TrimSpace(*in.Note)
		in.Note = &trimmed
	}
	var v validator
	v.input(in)
	if err := v.err(); err != nil {
		return nil, err
	}

	var note *string
	if in.Note != nil && *in.Note != "" {
		note = in.Note
	}

	mood := models.Mood{UserID: userID, Rating: in.Rating, Note: note}
	if err := s.moods.Create(ctx, &mood); err != nil {
		return nil, err
	}
	return &mood, nil
}

// Latest returns the ten most recent moods, newest first.
func (s *MoodServiceImpl) Latest(ctx context.Context, userID uuid.UUID) ([]models.Mood, error) {
	return s.moods.Latest(ctx, userID, dashboardMoodLimit)
}
