package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"reminddo/internal/calendar"
	"reminddo/internal/logging"
	"reminddo/internal/models"
	"reminddo/internal/monitoring"
	"reminddo/internal/repositories"
)

const (
	oauthStateTTL      = 10 * time.Minute
	oauthStateAudience = "google-calendar-connect"
)

var (
	// ErrReconnectRequired means the stored Google token can no longer be renewed.
	ErrReconnectRequired = errors.New("google calendar must be reconnected")
	ErrCalendarDisabled  = errors.New("google calendar is not configured")
	ErrInvalidState      = errors.New("invalid oauth state")
)

// GoogleCalendar is the subset of the Google connector the service needs.
type GoogleCalendar interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]calendar.Event, error)
}

type ICloudInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CalendarService struct {
	users       *repositories.UserRepository
	google      GoogleCalendar
	sealer      *calendar.Sealer
	stateSecret []byte
	issuer      string
	logger      *zap.Logger
	now         func() time.Time
}

// NewCalendarService wires the connectors. google may be nil when no OAuth client is configured.
func NewCalendarService(users *repositories.UserRepository, google GoogleCalendar, sealer *calendar.Sealer, stateSecret, issuer string, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		users:       users,
		google:      google,
		sealer:      sealer,
		stateSecret: []byte(stateSecret),
		issuer:      issuer,
		logger:      logger,
		now:         time.Now,
	}
}

// ConnectURL returns the Google consent URL with a signed state bound to the user.
func (s *CalendarService) ConnectURL(userID uuid.UUID) (string, error) {
	if s.google == nil {
		return "", ErrCalendarDisabled
	}
	now := s.now()
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{oauthStateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
	}).SignedString(s.stateSecret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return s.google.AuthCodeURL(state), nil
}

func (s *CalendarService) parseState(state string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (interface{}, error) {
		return s.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(oauthStateAudience),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidState
	}
	return id, nil
}

// HandleCallback verifies the state, exchanges the code and stores the token on the user it names.
func (s *CalendarService) HandleCallback(ctx context.Context, state, code string) (uuid.UUID, error) {
	if s.google == nil {
		return uuid.Nil, ErrCalendarDisabled
	}
	userID, err := s.parseState(state)
	if err != nil {
		return uuid.Nil, err
	}

	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.users.SaveGoogleToken(ctx, userID, googleToken(token)); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("google calendar connected", logging.UserID(userID))
	return userID, nil
}

// TodayEvents lists the user's Google events for the current local day.
// Users who never connected get an empty list. An expired token is refreshed
// first, and a rejected token is refreshed and the listing retried once.
func (s *CalendarService) TodayEvents(ctx context.Context, userID uuid.UUID) ([]calendar.Event, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !user.HasGoogleCalendar() || s.google == nil {
		return []calendar.Event{}, nil
	}

	access := *user.GoogleAccessToken
	refreshed := false
	if user.GoogleTokenExpiresAt != nil && user.GoogleTokenExpiresAt.Before(s.now()) {
		if access, err = s.refresh(ctx, user); err != nil {
			return nil, err
		}
		refreshed = true
	}

	from, to := calendar.DayBounds(s.now())
	events, err := s.google.ListEvents(ctx, access, from, to)
	if errors.Is(err, calendar.ErrUnauthorized) && !refreshed {
		if access, err = s.refresh(ctx, user); err != nil {
			return nil, err
		}
		events, err = s.google.ListEvents(ctx, access, from, to)
	}
	if errors.Is(err, calendar.ErrUnauthorized) {
		err = ErrReconnectRequired
	}
	monitoring.RecordCalendarFetch("google", err)
	if err != nil {
		s.logger.Warn("calendar fetch failed", logging.UserID(userID), logging.Err(err))
		return nil, err
	}
	return events, nil
}

// RefreshUserToken renews a user's Google access token ahead of expiry.
func (s *CalendarService) RefreshUserToken(ctx context.Context, userID uuid.UUID) error {
	if s.google == nil {
		return ErrCalendarDisabled
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return mapStoreError(err)
	}
	_, err = s.refresh(ctx, user)
	return err
}

func (s *CalendarService) refresh(ctx context.Context, user *models.User) (string, error) {
	if user.GoogleRefreshToken == nil || *user.GoogleRefreshToken == "" {
		return "", ErrReconnectRequired
	}

	token, err := s.google.Refresh(ctx, *user.GoogleRefreshToken)
	if err != nil {
		s.logger.Warn("google token refresh failed", logging.UserID(user.ID), logging.Err(err))
		return "", fmt.Errorf("%w: %v", ErrReconnectRequired, err)
	}
	if err := s.users.SaveGoogleToken(ctx, user.ID, googleToken(token)); err != nil {
		return "", err
	}

	user.GoogleAccessToken = &token.AccessToken
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		user.GoogleTokenExpiresAt = &expiry
	}
	return token.AccessToken, nil
}

// ConnectICloud stores the iCloud address and the sealed app-specific password.
// The credentials are not verified against Apple.
func (s *CalendarService) ConnectICloud(ctx context.Context, userID uuid.UUID, in ICloudInput) error {
	var v validator
	email := strings.TrimSpace(in.Email)
	v.input(ICloudInput{Email: email, Password: in.Password})
	if err := v.err(); err != nil {
		return err
	}
	if s.sealer == nil {
		return errors.New("icloud encryption key is not configured")
	}

	sealed, err := s.sealer.Seal(in.Password)
	if err != nil {
		return err
	}
	if err := s.users.SaveICloudCredentials(ctx, userID, email, sealed); err != nil {
		return err
	}
	s.logger.Info("icloud calendar connected", logging.UserID(userID))
	return nil
}

func googleToken(t *oauth2.Token) repositories.GoogleToken {
	return repositories.GoogleToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}
