package handlers_test

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"

	"reminddo/internal/ai"
	"reminddo/internal/calendar"
	"reminddo/internal/models"
	"reminddo/internal/services"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	args := m.Called(ctx, userID)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) CreateTasks(ctx context.Context, userID uuid.UUID, in services.CreateTaskInput) ([]models.Task, error) {
	args := m.Called(ctx, userID, in)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, in services.UpdateTaskInput) (*models.Task, error) {
	args := m.Called(ctx, userID, taskID, in)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	args := m.Called(ctx, userID, taskID)
	return args.Error(0)
}

func (m *MockTaskService) ToggleChecklistItem(ctx context.Context, userID, itemID uuid.UUID, completed bool) (*models.ChecklistItem, error) {
	args := m.Called(ctx, userID, itemID, completed)
	item, _ := args.Get(0).(*models.ChecklistItem)
	return item, args.Error(1)
}

func (m *MockTaskService) BulkSchedule(ctx context.Context, userID uuid.UUID, entries []services.ScheduleEntry) (int, error) {
	args := m.Called(ctx, userID, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskService) BulkStore(ctx context.Context, userID uuid.UUID, inputs []services.BulkTaskInput) ([]models.Task, error) {
	args := m.Called(ctx, userID, inputs)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

type MockAuthService struct {
	mock.Mock
	userID uuid.UUID
}

func (m *MockAuthService) LoginUser(ctx context.Context, login, password string) (*models.User, error) {
	args := m.Called(ctx, login, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAuthService) GenerateTokens(ctx context.Context, userID uuid.UUID) (*services.TokenPair, error) {
	args := m.Called(ctx, userID)
	pair, _ := args.Get(0).(*services.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(*services.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

// ValidateAccessToken accepts the literal token "valid" for the configured user.
func (m *MockAuthService) ValidateAccessToken(token string) (uuid.UUID, error) {
	if token == "valid" {
		return m.userID, nil
	}
	return uuid.Nil, services.ErrInvalidToken
}

type MockRegisterService struct {
	mock.Mock
}

func (m *MockRegisterService) RegisterUser(ctx context.Context, req services.RegistrationRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*services.Profile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*services.Profile)
	return p, args.Error(1)
}

type MockMoodService struct {
	mock.Mock
}

func (m *MockMoodService) Record(ctx context.Context, userID uuid.UUID, in services.MoodInput) (*models.Mood, error) {
	args := m.Called(ctx, userID, in)
	mood, _ := args.Get(0).(*models.Mood)
	return mood, args.Error(1)
}

func (m *MockMoodService) Latest(ctx context.Context, userID uuid.UUID) ([]models.Mood, error) {
	args := m.Called(ctx, userID)
	moods, _ := args.Get(0).([]models.Mood)
	return moods, args.Error(1)
}

type MockDashboard struct {
	mock.Mock
}

func (m *MockDashboard) Dashboard(ctx context.Context, userID uuid.UUID) (*services.Dashboard, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).(*services.Dashboard)
	return d, args.Error(1)
}

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) GenerateDailyPlan(ctx context.Context, todoList string) (*ai.Plan, error) {
	args := m.Called(ctx, todoList)
	plan, _ := args.Get(0).(*ai.Plan)
	return plan, args.Error(1)
}

type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) ConnectURL(userID uuid.UUID) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockCalendar) HandleCallback(ctx context.Context, state, code string) (uuid.UUID, error) {
	args := m.Called(ctx, state, code)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *MockCalendar) TodayEvents(ctx context.Context, userID uuid.UUID) ([]calendar.Event, error) {
	args := m.Called(ctx, userID)
	events, _ := args.Get(0).([]calendar.Event)
	return events, args.Error(1)
}

func (m *MockCalendar) ConnectICloud(ctx context.Context, userID uuid.UUID, in services.ICloudInput) error {
	args := m.Called(ctx, userID, in)
	return args.Error(0)
}

var errBoom = errors.New("boom")
