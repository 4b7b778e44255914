package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"reminddo/internal/config"
)

type fakeGoogle struct {
	t           *testing.T
	server      *httptest.Server
	validToken  string
	lastQuery   url.Values
	tokenBodies []url.Values
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{t: t, validToken: "good-token"}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", f.token)
	mux.HandleFunc("/calendars/primary/events", f.events)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) connector() *GoogleConnector {
	return NewGoogleConnector(config.GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
	}, WithEndpoints(oauth2.Endpoint{
		AuthURL:  f.server.URL + "/auth",
		TokenURL: f.server.URL + "/token",
	}, f.server.URL+"/"))
}

func (f *fakeGoogle) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	f.tokenBodies = append(f.tokenBodies, r.PostForm)

	resp := map[string]interface{}{
		"access_token": f.validToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if r.PostForm.Get("grant_type") == "authorization_code" {
		resp["refresh_token"] = "refresh-1"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeGoogle) events(w http.ResponseWriter, r *http.Request) {
	f.lastQuery = r.URL.Query()
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer "+f.validToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"items":[
		{"id":"e1","summary":"Standup","start":{"dateTime":"2026-01-05T09:00:00Z"},"end":{"dateTime":"2026-01-05T09:15:00Z"},"hangoutLink":"https://meet.google.com/abc"},
		{"id":"e2","summary":"Holiday","start":{"date":"2026-01-05"},"end":{"date":"2026-01-06"}}
	]}`))
}

func TestGoogleConnector_AuthCodeURL(t *testing.T) {
	g := NewGoogleConnector(config.GoogleConfig{ClientID: "client", RedirectURL: "http://localhost/cb"})

	u, err := url.Parse(g.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.events.readonly", q.Get("scope"))
}

func TestGoogleConnector_ListEvents(t *testing.T) {
	f := newFakeGoogle(t)
	g := f.connector()

	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	events, err := g.ListEvents(context.Background(), "good-token", from, from.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, Event{ID: "e1", Title: "Standup", Start: "2026-01-05T09:00:00Z", End: "2026-01-05T09:15:00Z", VideoLink: "https://meet.google.com/abc"}, events[0])
	assert.Equal(t, "2026-01-05", events[1].Start)
	assert.Empty(t, events[1].VideoLink)

	assert.Equal(t, "20", f.lastQuery.Get("maxResults"))
	assert.Equal(t, "startTime", f.lastQuery.Get("orderBy"))
	assert.Equal(t, "true", f.lastQuery.Get("singleEvents"))
	assert.Equal(t, "2026-01-05T00:00:00Z", f.lastQuery.Get("timeMin"))
	assert.Equal(t, "2026-01-06T00:00:00Z", f.lastQuery.Get("timeMax"))
}

func TestGoogleConnector_ListEventsUnauthorized(t *testing.T) {
	f := newFakeGoogle(t)
	g := f.connector()

	_, err := g.ListEvents(context.Background(), "stale", time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestGoogleConnector_ExchangeAndRefresh(t *testing.T) {
	f := newFakeGoogle(t)
	g := f.connector()

	tok, err := g.Exchange(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "good-token", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.True(t, tok.Expiry.After(time.Now()))

	f.validToken = "fresh-token"
	refreshed, err := g.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken, "unchanged refresh token is not reported as new")

	require.Len(t, f.tokenBodies, 2)
	assert.Equal(t, "refresh_token", f.tokenBodies[1].Get("grant_type"))
	assert.Equal(t, "refresh-1", f.tokenBodies[1].Get("refresh_token"))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	start, end := DayBounds(time.Date(2026, 3, 29, 17, 45, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 29, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 3, 30, 0, 0, 0, 0, loc), end)
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("k1")
	require.NoError(t, err)

	sealed, err := s.Seal("abcd-efgh-ijkl-mnop")
	require.NoError(t, err)
	assert.False(t, strings.Contains(sealed, "abcd"))

	again, err := s.Seal("abcd-efgh-ijkl-mnop")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "abcd-efgh-ijkl-mnop", plain)
}

func TestSealer_RejectsForeignKeyAndGarbage(t *testing.T) {
	a, _ := NewSealer("k1")
	b, _ := NewSealer("k2")

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrSealedValue)

	_, err = a.Open("not base64!")
	assert.ErrorIs(t, err, ErrSealedValue)

	_, err = a.Open("AAAA")
	assert.ErrorIs(t, err, ErrSealedValue)
}

func TestNewSealer_EmptyKey(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}
