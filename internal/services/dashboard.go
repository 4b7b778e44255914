package services

import (
	"context"

	"github.com/gofrs/uuid"

	"reminddo/internal/models"
)

type Dashboard struct {
	Tasks []models.Task `json:"tasks"`
	Moods []models.Mood `json:"moods"`
}

type DashboardService struct {
	tasks TaskService
	moods MoodService
}

func NewDashboardService(tasks TaskService, moods MoodService) *DashboardService {
	return &DashboardService{tasks: tasks, moods: moods}
}

func (s *DashboardService) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	tasks, err := s.tasks.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	moods, err := s.moods.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	if moods == nil {
		moods = []models.Mood{}
	}
	return &Dashboard{Tasks: tasks, Moods: moods}, nil
}
