package graph

import (
	"fmt"
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/fault"
)

// One explicit schema per endpoint; Graph's split timestamp+timezone
// shape is resolved here at the parse boundary, never downstream.

type presencePayload struct {
	Availability string `json:"availability"`
	Activity     string `json:"activity"`
}

type calendarPayload struct {
	Value []eventPayload `json:"value"`
}

type eventPayload struct {
	ID        string         `json:"id"`
	Subject   string         `json:"subject"`
	Start     dateTimeZone   `json:"start"`
	End       dateTimeZone   `json:"end"`
	IsAllDay  bool           `json:"isAllDay"`
	ShowAs    string         `json:"showAs"`
	Type      string         `json:"type"`
	Location  locationInfo   `json:"location"`
	Attendees []attendeeInfo `json:"attendees"`
}

type dateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type locationInfo struct {
	DisplayName string `json:"displayName"`
}

type attendeeInfo struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// resolve converts Graph's local timestamp + IANA/Windows zone pair
// into an instant.
func (d dateTimeZone) resolve() (time.Time, error) {
	loc := time.UTC
	if d.TimeZone != "" && d.TimeZone != "UTC" {
		parsed, err := time.LoadLocation(d.TimeZone)
		if err == nil {
			loc = parsed
		}
		// Unknown zone names (Windows-style ids) fall back to UTC,
		// which is what Graph serves when Prefer headers are absent.
	}
	for _, layout := range []string{"2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, d.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", fault.ErrInvalidResponse, d.DateTime)
}

func (e eventPayload) toEvent() (calendar.Event, error) {
	start, err := e.Start.resolve()
	if err != nil {
		return calendar.Event{}, err
	}
	end, err := e.End.resolve()
	if err != nil {
		return calendar.Event{}, err
	}

	attendees := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		if a.EmailAddress.Address != "" {
			attendees = append(attendees, a.EmailAddress.Address)
		}
	}

	return calendar.Event{
		ID:          e.ID,
		Subject:     e.Subject,
		Start:       start,
		End:         end,
		AllDay:      e.IsAllDay,
		BusyStatus:  calendar.ParseBusyStatus(e.ShowAs),
		IsRecurring: e.Type == "occurrence" || e.Type == "seriesMaster",
		Attendees:   attendees,
		Location:    e.Location.DisplayName,
	}, nil
}
