package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Username string    `json:"username" gorm:"unique;not null"`
	Email    string    `json:"email" gorm:"unique;not null"`
	Password string    `json:"-" gorm:"not null"`

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	GoogleID             *string    `json:"-"`
	GoogleAccessToken    *string    `json:"-" gorm:"type:text"`
	GoogleRefreshToken   *string    `json:"-" gorm:"type:text"`
	GoogleTokenExpiresAt *time.Time `json:"-" gorm:"index"`

	ICloudEmail    *string `json:"-" gorm:"column:icloud_email"`
	ICloudPassword *string `json:"-" gorm:"column:icloud_password;type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:UserID"`
	Moods []Mood `json:"moods,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		u.ID = id
	}
	return nil
}

// HasGoogleCalendar reports whether an access token was ever stored for the user.
func (u *User) HasGoogleCalendar() bool {
	return u.GoogleAccessToken != nil && *u.GoogleAccessToken != ""
}

func (u *User) HasICloudCalendar() bool {
	return u.ICloudEmail != nil && *u.ICloudEmail != ""
}

type Token struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserId       uuid.UUID `json:"user_id" gorm:"column:user_id;type:uuid;not null;index"`
	RefreshToken uuid.UUID `json:"refresh_token" gorm:"type:uuid;uniqueIndex;not null"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// All lists every model managed by AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{&User{}, &Token{}, &Task{}, &ChecklistItem{}, &Mood{}}
}
