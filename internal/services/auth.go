package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"reminddo/internal/config"
	"reminddo/internal/models"
	"reminddo/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid token")
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccessClaims are the claims carried by access tokens.
type AccessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthService interface {
	LoginUser(ctx context.Context, login, password string) (*models.User, error)
	GenerateTokens(ctx context.Context, userID uuid.UUID) (*TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	users *repositories.UserRepository
	cfg   config.AuthConfig
	now   func() time.Time
}

func NewAuthService(users *repositories.UserRepository, cfg config.AuthConfig) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, cfg: cfg, now: time.Now}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

// LoginUser accepts either the username or the email address as login.
func (s *AuthServiceImpl) LoginUser(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return user, nil
}

func (s *AuthServiceImpl) GenerateTokens(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	now := s.now()

	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	token := models.Token{
		UserId:       userID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.users.CreateToken(ctx, &token); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refresh.String(),
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// RefreshToken rotates a refresh token: the presented one is consumed and a new pair issued.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	id, err := uuid.FromString(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	token, err := s.users.FindValidToken(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// A concurrent refresh may have consumed the token first.
	deleted, err := s.users.DeleteToken(ctx, token.RefreshToken)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return nil, ErrInvalidToken
	}

	return s.GenerateTokens(ctx, token.UserId)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	id, err := uuid.FromString(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	deleted, err := s.users.DeleteToken(ctx, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *AuthServiceImpl) ValidateAccessToken(tokenString string) (uuid.UUID, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.FromString(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad user id", ErrInvalidToken)
	}
	return userID, nil
}
