// Package calendar models the upcoming-events signal polled from the
// Microsoft Graph calendar view.
package calendar

import (
	"sort"
	"time"
)

// BusyStatus is the event classification reported by the calendar.
type BusyStatus string

const (
	BusyStatusFree        BusyStatus = "free"
	BusyStatusTentative   BusyStatus = "tentative"
	BusyStatusBusy        BusyStatus = "busy"
	BusyStatusOutOfOffice BusyStatus = "out_of_office"
	BusyStatusUnknown     BusyStatus = "unknown"
)

// ParseBusyStatus maps a Graph showAs value to a BusyStatus.
func ParseBusyStatus(s string) BusyStatus {
	switch s {
	case "free", "workingElsewhere":
		return BusyStatusFree
	case "tentative":
		return BusyStatusTentative
	case "busy":
		return BusyStatusBusy
	case "oof":
		return BusyStatusOutOfOffice
	default:
		return BusyStatusUnknown
	}
}

// Event is one calendar event. Events are immutable once constructed;
// a poll replaces the whole collection.
type Event struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	AllDay      bool       `json:"all_day"`
	BusyStatus  BusyStatus `json:"busy_status"`
	IsRecurring bool       `json:"is_recurring"`
	Attendees   []string   `json:"attendees,omitempty"`
	Location    string     `json:"location,omitempty"`
}

// Duration returns the event length.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsActive reports whether now falls within [start, end].
func (e Event) IsActive(now time.Time) bool {
	return !now.Before(e.Start) && !now.After(e.End)
}

// IsUpcoming reports whether the event starts in the future.
func (e Event) IsUpcoming(now time.Time) bool {
	return e.Start.After(now)
}

// MinutesUntilStart returns the whole and fractional minutes until the
// event starts; negative once it has started.
func (e Event) MinutesUntilStart(now time.Time) float64 {
	return e.Start.Sub(now).Minutes()
}

// Snapshot is the latest complete event collection, sorted by start.
type Snapshot struct {
	Events     []Event   `json:"events"`
	ObservedAt time.Time `json:"observed_at"`
}

// NewSnapshot sorts events by start time and wraps them.
func NewSnapshot(events []Event, observedAt time.Time) Snapshot {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return Snapshot{Events: sorted, ObservedAt: observedAt}
}

// NextUpcoming returns the earliest event starting after now, or false
// when there is none. All events qualify regardless of busy status;
// the legacy resolver path applies its own busy-only filter.
func (s Snapshot) NextUpcoming(now time.Time) (Event, bool) {
	for _, e := range s.Events {
		if e.IsUpcoming(now) {
			return e, true
		}
	}
	return Event{}, false
}

// NextUpcomingBusy returns the earliest busy-classified event starting
// after now, or the currently active busy event if one is running.
// This is the selection rule of the legacy countdown-stage overlay.
func (s Snapshot) NextUpcomingBusy(now time.Time) (Event, bool) {
	for _, e := range s.Events {
		if e.BusyStatus != BusyStatusBusy {
			continue
		}
		if e.IsActive(now) || e.IsUpcoming(now) {
			return e, true
		}
	}
	return Event{}, false
}
