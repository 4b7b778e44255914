package services

import (
	"context"
	"time"

	"github.com/gofrs/uuid"

	"reminddo/internal/repositories"
)

// Profile is the signed-in user's account summary, including which calendars are linked.
type Profile struct {
	ID                      uuid.UUID  `json:"id"`
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	IsActive                bool       `json:"is_active"`
	LastLoginAt             *time.Time `json:"last_login_at"`
	GoogleCalendarConnected bool       `json:"google_calendar_connected"`
	ICloudConnected         bool       `json:"icloud_connected"`
	CreatedAt               time.Time  `json:"created_at"`
}

type UserService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

type UserServiceImpl struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{users: users}
}

func (s *UserServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &Profile{
		ID:                      user.ID,
		Username:                user.Username,
		Email:                   user.Email,
		IsActive:                user.IsActive,
		LastLoginAt:             user.LastLoginAt,
		GoogleCalendarConnected: user.HasGoogleCalendar(),
		ICloudConnected:         user.HasICloudCalendar(),
		CreatedAt:               user.CreatedAt,
	}, nil
}
