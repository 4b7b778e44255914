package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"reminddo/internal/calendar"
	"reminddo/internal/models"
	"reminddo/internal/repositories"
	"reminddo/internal/testutil"
)

type stubGoogle struct {
	accepted   string
	refreshErr error
	refreshes  int
	lists      int
	lastFrom   time.Time
}

func (g *stubGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (g *stubGoogle) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code != "good-code" {
		return nil, errors.New("bad code")
	}
	return &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}, nil
}

func (g *stubGoogle) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	g.refreshes++
	if g.refreshErr != nil {
		return nil, g.refreshErr
	}
	g.accepted = "access-refreshed"
	return &oauth2.Token{AccessToken: g.accepted, Expiry: time.Now().Add(time.Hour)}, nil
}

func (g *stubGoogle) ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]calendar.Event, error) {
	g.lists++
	g.lastFrom = from
	if accessToken != g.accepted {
		return nil, calendar.ErrUnauthorized
	}
	return []calendar.Event{{ID: "e1", Title: "Standup"}}, nil
}

type CalendarServiceSuite struct {
	suite.Suite
	db      *gorm.DB
	users   *repositories.UserRepository
	google  *stubGoogle
	service *CalendarService
	user    *models.User
	ctx     context.Context
}

func TestCalendarServiceSuite(t *testing.T) {
	suite.Run(t, new(CalendarServiceSuite))
}

func (s *CalendarServiceSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.users = repositories.NewUserRepository(s.db)
	s.google = &stubGoogle{accepted: "access-1"}
	sealer, err := calendar.NewSealer("test-key")
	s.Require().NoError(err)
	s.service = NewCalendarService(s.users, s.google, sealer, "state-secret", "reminddo-test", nil)
	s.user = testutil.CreateUser(s.T(), s.db, "alice")
	s.ctx = context.Background()
}

func (s *CalendarServiceSuite) storeToken(access, refresh string, expiry time.Time) {
	s.Require().NoError(s.users.SaveGoogleToken(s.ctx, s.user.ID, repositories.GoogleToken{
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       expiry,
	}))
}

func (s *CalendarServiceSuite) reloadUser() *models.User {
	u, err := s.users.FindByID(s.ctx, s.user.ID)
	s.Require().NoError(err)
	return u
}

func (s *CalendarServiceSuite) TestTodayEvents_NotConnected() {
	events, err := s.service.TodayEvents(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.NotNil(events)
	s.Empty(events)
	s.Zero(s.google.lists)
}

func (s *CalendarServiceSuite) TestTodayEvents_ValidToken() {
	s.storeToken("access-1", "refresh-1", time.Now().Add(time.Hour))

	events, err := s.service.TodayEvents(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
	s.Zero(s.google.refreshes)

	now := time.Now()
	s.Equal(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), s.google.lastFrom)
}

func (s *CalendarServiceSuite) TestTodayEvents_ExpiredTokenIsRefreshed() {
	s.storeToken("access-old", "refresh-1", time.Now().Add(-time.Minute))

	events, err := s.service.TodayEvents(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
	s.Equal(1, s.google.refreshes)

	u := s.reloadUser()
	s.Equal("access-refreshed", *u.GoogleAccessToken)
	s.Equal("refresh-1", *u.GoogleRefreshToken, "refresh token is kept when Google omits it")
	s.True(u.GoogleTokenExpiresAt.After(time.Now()))
}

func (s *CalendarServiceSuite) TestTodayEvents_ExpiredWithoutRefreshToken() {
	s.storeToken("access-old", "", time.Now().Add(-time.Minute))

	_, err := s.service.TodayEvents(s.ctx, s.user.ID)
	s.ErrorIs(err, ErrReconnectRequired)
	s.Zero(s.google.lists)
}

func (s *CalendarServiceSuite) TestTodayEvents_RejectedTokenRetriesOnce() {
	s.storeToken("access-revoked", "refresh-1", time.Now().Add(time.Hour))

	events, err := s.service.TodayEvents(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
	s.Equal(1, s.google.refreshes)
	s.Equal(2, s.google.lists)
}

func (s *CalendarServiceSuite) TestTodayEvents_RefreshFailureNeedsReconnect() {
	s.storeToken("access-revoked", "refresh-1", time.Now().Add(time.Hour))
	s.google.refreshErr = errors.New("invalid_grant")

	_, err := s.service.TodayEvents(s.ctx, s.user.ID)
	s.ErrorIs(err, ErrReconnectRequired)
	s.Equal(1, s.google.lists)
}

func (s *CalendarServiceSuite) TestConnectAndCallback() {
	raw, err := s.service.ConnectURL(s.user.ID)
	s.Require().NoError(err)

	u, err := url.Parse(raw)
	s.Require().NoError(err)
	state := u.Query().Get("state")
	s.NotEmpty(state)

	userID, err := s.service.HandleCallback(s.ctx, state, "good-code")
	s.Require().NoError(err)
	s.Equal(s.user.ID, userID)

	stored := s.reloadUser()
	s.True(stored.HasGoogleCalendar())
	s.Equal("refresh-1", *stored.GoogleRefreshToken)
}

func (s *CalendarServiceSuite) TestCallback_RejectsBadState() {
	_, err := s.service.HandleCallback(s.ctx, "forged", "good-code")
	s.ErrorIs(err, ErrInvalidState)

	raw, err := s.service.ConnectURL(s.user.ID)
	s.Require().NoError(err)
	u, _ := url.Parse(raw)

	s.service.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = s.service.HandleCallback(s.ctx, u.Query().Get("state"), "good-code")
	s.ErrorIs(err, ErrInvalidState, "state expires after ten minutes")
}

func (s *CalendarServiceSuite) TestDisabledGoogle() {
	svc := NewCalendarService(s.users, nil, nil, "secret", "iss", nil)

	_, err := svc.ConnectURL(s.user.ID)
	s.ErrorIs(err, ErrCalendarDisabled)

	s.storeToken("access-1", "refresh-1", time.Now().Add(time.Hour))
	events, err := svc.TodayEvents(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *CalendarServiceSuite) TestRefreshUserToken() {
	s.storeToken("access-old", "refresh-1", time.Now().Add(5*time.Minute))

	s.Require().NoError(s.service.RefreshUserToken(s.ctx, s.user.ID))
	s.Equal("access-refreshed", *s.reloadUser().GoogleAccessToken)

	s.ErrorIs(s.service.RefreshUserToken(s.ctx, uuid.Must(uuid.NewV4())), ErrNotFound)
}

func (s *CalendarServiceSuite) TestConnectICloud() {
	err := s.service.ConnectICloud(s.ctx, s.user.ID, ICloudInput{Email: "not-an-email", Password: ""})
	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Contains(verr.Fields, "email")
	s.Contains(verr.Fields, "password")

	s.Require().NoError(s.service.ConnectICloud(s.ctx, s.user.ID, ICloudInput{
		Email:    "alice@icloud.com",
		Password: "abcd-efgh-ijkl-mnop",
	}))

	u := s.reloadUser()
	s.True(u.HasICloudCalendar())
	s.NotEqual("abcd-efgh-ijkl-mnop", *u.ICloudPassword)

	plain, err := s.service.sealer.Open(*u.ICloudPassword)
	s.Require().NoError(err)
	s.Equal("abcd-efgh-ijkl-mnop", plain)
}
