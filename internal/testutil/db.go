// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reminddo/internal/database"
	"reminddo/internal/models"
)

// NewDB opens a migrated in-memory SQLite database that is closed when the test ends.
// The pool is pinned to a single connection so every query sees the same memory database.
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:       database.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     logger.Silent,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return pool.DB
}

// CreateUser inserts an active user whose password is "Password1!".
func CreateUser(tb testing.TB, db *gorm.DB, username string) *models.User {
	tb.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password1!"), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return user
}
