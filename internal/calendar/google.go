// Package calendar reads today's events from the calendars a user connects.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"reminddo/internal/config"
)

// ErrUnauthorized means Google rejected the access token.
var ErrUnauthorized = errors.New("calendar: access token rejected")

const (
	defaultCalendarID = "primary"
	defaultMaxEvents  = 20
)

// Event is the JSON shape the dashboard renders. Start and End hold an RFC 3339
// timestamp, or a bare date for all-day events.
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	VideoLink string `json:"videoLink,omitempty"`
}

type GoogleConnector struct {
	oauth      *oauth2.Config
	calendarID string
	maxEvents  int64
	endpoint   string
	httpClient *http.Client
}

type GoogleOption func(*GoogleConnector)

// WithEndpoints points OAuth and the Calendar API at alternative base URLs.
func WithEndpoints(oauthEndpoint oauth2.Endpoint, apiEndpoint string) GoogleOption {
	return func(g *GoogleConnector) {
		g.oauth.Endpoint = oauthEndpoint
		g.endpoint = apiEndpoint
	}
}

// WithHTTPClient sets the base transport used for token and API calls.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleConnector) {
		g.httpClient = c
	}
}

func NewGoogleConnector(cfg config.GoogleConfig, opts ...GoogleOption) *GoogleConnector {
	g := &GoogleConnector{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsReadonlyScope},
		},
		calendarID: cfg.CalendarID,
		maxEvents:  int64(cfg.MaxEvents),
	}
	if g.calendarID == "" {
		g.calendarID = defaultCalendarID
	}
	if g.maxEvents <= 0 {
		g.maxEvents = defaultMaxEvents
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL asks for offline access with forced consent so a refresh token is issued.
func (g *GoogleConnector) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *GoogleConnector) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.oauth.Exchange(g.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh trades a refresh token for a new access token. The returned token may
// carry an empty refresh token, in which case the stored one stays valid.
func (g *GoogleConnector) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := g.oauth.TokenSource(g.clientContext(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if token.RefreshToken == refreshToken {
		token.RefreshToken = ""
	}
	return token, nil
}

// ListEvents returns single events in [from, to) ordered by start time.
func (g *GoogleConnector) ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]Event, error) {
	client := oauth2.NewClient(g.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	res, err := svc.Events.List(g.calendarID).
		Context(ctx).
		MaxResults(g.maxEvents).
		OrderBy("startTime").
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, Event{
			ID:        item.Id,
			Title:     item.Summary,
			Start:     eventTime(item.Start),
			End:       eventTime(item.End),
			VideoLink: item.HangoutLink,
		})
	}
	return events, nil
}

func (g *GoogleConnector) clientContext(ctx context.Context) context.Context {
	if g.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

func eventTime(t *gcal.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// DayBounds returns the start of the day containing t and the start of the next one.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
