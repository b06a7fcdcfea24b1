// Package graph is the Microsoft Graph client for the two upstream
// signals: the presence query and the bounded calendar view.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/fault"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// TokenProvider supplies a currently valid bearer token; the auth
// manager implements it and refreshes transparently.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to Microsoft Graph. Requests are throttled with a
// courtesy requests-per-second cap so the two polling loops plus the
// safety recompute cannot pile onto the API.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter

	now func() time.Time
}

// NewClient creates a Graph client.
func NewClient(tokens TokenProvider, timeout time.Duration, rps float64) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		baseURL:    defaultBaseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
		now:        time.Now,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fault.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: graph returned 401", fault.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: graph returned 429", fault.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: graph returned %d", fault.ErrInvalidResponse, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", fault.ErrInvalidResponse, err)
	}
	return nil
}

// GetPresence fetches the current availability signal.
func (c *Client) GetPresence(ctx context.Context) (presence.Snapshot, error) {
	var raw presencePayload
	if err := c.get(ctx, "/me/presence", nil, &raw); err != nil {
		return presence.Snapshot{}, err
	}
	return presence.Snapshot{
		State:      presence.ParseState(raw.Availability),
		Activity:   raw.Activity,
		ObservedAt: c.now().UTC(),
	}, nil
}

// CalendarView fetches events in the bounded future window and returns
// them as a sorted snapshot.
func (c *Client) CalendarView(ctx context.Context, window time.Duration) (calendar.Snapshot, error) {
	now := c.now().UTC()
	query := url.Values{}
	query.Set("startDateTime", now.Format(time.RFC3339))
	query.Set("endDateTime", now.Add(window).Format(time.RFC3339))
	query.Set("$orderby", "start/dateTime")
	query.Set("$top", "50")

	var raw calendarPayload
	if err := c.get(ctx, "/me/calendarView", query, &raw); err != nil {
		return calendar.Snapshot{}, err
	}

	events := make([]calendar.Event, 0, len(raw.Value))
	for _, e := range raw.Value {
		event, err := e.toEvent()
		if err != nil {
			return calendar.Snapshot{}, err
		}
		events = append(events, event)
	}
	return calendar.NewSnapshot(events, now), nil
}
