// Package repositories is the gorm-backed Task Store.
package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Store bundles the repositories over one connection or transaction.
type Store struct {
	db    *gorm.DB
	Tasks *TaskRepository
	Moods *MoodRepository
	Users *UserRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		Tasks: NewTaskRepository(db),
		Moods: NewMoodRepository(db),
		Users: NewUserRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single database transaction.
// Returning an error from fn rolls back every write made through it.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) DB() *gorm.DB {
	return s.db
}
