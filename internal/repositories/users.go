package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"reminddo/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByLogin matches either the username or the email address.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", at).Error
}

// GoogleToken is the OAuth token material persisted on a user row.
type GoogleToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// SaveGoogleToken stores the token. An empty refresh token keeps the stored one,
// since Google only returns it on the first consent.
func (r *UserRepository) SaveGoogleToken(ctx context.Context, userID uuid.UUID, token GoogleToken) error {
	fields := map[string]interface{}{
		"google_access_token": token.AccessToken,
	}
	if !token.Expiry.IsZero() {
		fields["google_token_expires_at"] = token.Expiry
	}
	if token.RefreshToken != "" {
		fields["google_refresh_token"] = token.RefreshToken
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("save google token: %w", err)
	}
	return nil
}

func (r *UserRepository) SaveICloudCredentials(ctx context.Context, userID uuid.UUID, email, sealedPassword string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"icloud_email":    email,
		"icloud_password": sealedPassword,
	}).Error
	if err != nil {
		return fmt.Errorf("save icloud credentials: %w", err)
	}
	return nil
}

// ExpiringGoogleTokens lists users holding a refresh token whose access token expires before the deadline.
func (r *UserRepository) ExpiringGoogleTokens(ctx context.Context, before time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("google_refresh_token IS NOT NULL AND google_refresh_token <> '' AND google_token_expires_at IS NOT NULL AND google_token_expires_at < ?", before).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list expiring tokens: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CreateToken(ctx context.Context, token *models.Token) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// FindValidToken returns the refresh token row if it exists and has not expired.
func (r *UserRepository) FindValidToken(ctx context.Context, refreshToken uuid.UUID, now time.Time) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, now).
		First(&token).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (r *UserRepository) DeleteToken(ctx context.Context, refreshToken uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Delete(&models.Token{})
	return result.RowsAffected, result.Error
}
