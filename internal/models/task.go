package models

import (
	"time"

	"reminddo/internal/recurrence"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

type Task struct {
	ID                uuid.UUID           `json:"id" gorm:"primaryKey;type:uuid"`
	UserID            uuid.UUID           `json:"user_id" gorm:"type:uuid;not null;index"`
	Title             string              `json:"title" gorm:"size:255;not null"`
	StartTime         *time.Time          `json:"start_time" gorm:"index"`
	EndTime           *time.Time          `json:"end_time"`
	AllDay            bool                `json:"all_day" gorm:"not null;default:false"`
	TimeOfDay         *string             `json:"time_of_day"`
	Color             *string             `json:"color"`
	Icon              *string             `json:"icon"`
	Notes             *string             `json:"notes" gorm:"type:text"`
	Priority          *Priority           `json:"priority"`
	IsCompleted       bool                `json:"is_completed" gorm:"not null;default:false"`
	RecurrencePattern *recurrence.Pattern `json:"recurrence_pattern"`
	RecurrenceID      *uuid.UUID          `json:"recurrence_id" gorm:"type:uuid;index"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	ChecklistItems []ChecklistItem `json:"checklist_items" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// IsRecurring reports whether the task belongs to a recurrence series.
func (t *Task) IsRecurring() bool {
	return t.RecurrenceID != nil && *t.RecurrenceID != uuid.Nil
}

type ChecklistItem struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID      uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	IsCompleted bool      `json:"is_completed" gorm:"not null;default:false"`
	Position    int       `json:"position" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *ChecklistItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		c.ID = id
	}
	return nil
}
