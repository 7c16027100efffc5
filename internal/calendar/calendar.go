// Package calendar schedules item actions as Google Calendar events.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/oauth2/google"

	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/upstream"
)

// DefaultBaseURL is the Calendar v3 REST root.
const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// DefaultCalendarID is the service account's own calendar.
const DefaultCalendarID = "primary"

// Scope grants read/write access to calendars.
const Scope = "https://www.googleapis.com/auth/calendar"

// Event is a calendar entry to create.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	Duration    time.Duration
}

// Confirmation describes a created event.
type Confirmation struct {
	Status  string    `json:"status"`
	EventID string    `json:"event_id"`
	Link    string    `json:"link,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Client creates events in one calendar.
type Client struct {
	calendarID string
	base       string
	up         *upstream.Client
}

// New returns a client. A nil up means no credentials are configured and
// every Schedule call fails.
func New(calendarID, baseURL string, up *upstream.Client) *Client {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{calendarID: calendarID, base: strings.TrimRight(baseURL, "/"), up: up}
}

// CredentialsClient returns an HTTP client authorized with the service
// account key at path. ctx is used for token refreshes and should outlive
// the client.
func CredentialsClient(ctx context.Context, path string) (*http.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calendar credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("parsing calendar credentials: %w", err)
	}
	return conf.Client(ctx), nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventRequest struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// Schedule creates ev and returns its confirmation.
func (c *Client) Schedule(ctx context.Context, ev Event) (*Confirmation, error) {
	if c.up == nil {
		return nil, &upstream.ExternalServiceError{Service: "calendar", Message: "missing credentials"}
	}

	start := ev.Start.UTC()
	end := start.Add(ev.Duration)
	req := eventRequest{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       eventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:         eventTime{DateTime: end.Format(time.RFC3339), TimeZone: "UTC"},
	}

	endpoint := c.base + "/calendars/" + url.PathEscape(c.calendarID) + "/events"
	var resp eventResponse
	if err := c.up.PostJSON(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, c.up.Errorf("created event has no id")
	}

	return &Confirmation{
		Status:  "scheduled",
		EventID: resp.ID,
		Link:    resp.HTMLLink,
		Start:   start,
		End:     end,
	}, nil
}

// ItemEvent builds the event for performing action on item.
func ItemEvent(item *model.Item, action string, start time.Time, duration time.Duration) Event {
	itemType := item.Type
	if itemType == "" {
		itemType = "Clothing"
	}
	material := item.Material
	if material == "" {
		material = "unknown"
	}
	return Event{
		Summary:     fmt.Sprintf("%s item: %s", capitalize(action), itemType),
		Description: fmt.Sprintf("Action: %s\nItem ID: %d\nMaterial: %s", action, item.ID, material),
		Start:       start,
		Duration:    duration,
	}
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}
