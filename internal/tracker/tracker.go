// Package tracker implements the meeting countdown engine: the
// continuously-advancing blend between an idle color and a meeting
// color as the next calendar event approaches.
package tracker

import (
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/color"
)

// Config is the user-facing tracker configuration, persisted in the
// tracker kv bucket.
type Config struct {
	Enabled       bool      `json:"enabled" yaml:"enabled"`
	WindowMinutes int       `json:"window_minutes" yaml:"window_minutes"`
	IdleColor     color.RGB `json:"idle_color" yaml:"idle_color"`
	MeetingColor  color.RGB `json:"meeting_color" yaml:"meeting_color"`
	DeviceIDs     []string  `json:"device_ids" yaml:"device_ids"`
}

// DefaultConfig returns a disabled tracker with the stock 15-minute
// green-to-red ramp.
func DefaultConfig() Config {
	return Config{
		WindowMinutes: 15,
		IdleColor:     color.New(0, 255, 0),
		MeetingColor:  color.New(255, 0, 0),
	}
}

// AppliesTo reports whether the device opted into the tracker.
func (c Config) AppliesTo(deviceID string) bool {
	for _, id := range c.DeviceIDs {
		if id == deviceID {
			return true
		}
	}
	return false
}

// State is derived, never stored: the tracker's view of the next
// qualifying event at one instant.
type State struct {
	Event            *calendar.Event `json:"event,omitempty"`
	MinutesRemaining float64         `json:"minutes_remaining"`
	Progress         float64         `json:"progress"`
	Active           bool            `json:"active"`
}

// Compute derives the tracker state from the configuration and the
// latest calendar snapshot. Unlike the legacy overlay, every upcoming
// event qualifies regardless of busy status. Progress is linear,
// 1 - remaining/window, clamped to [0, 1]; zero while inactive.
func Compute(cfg Config, events calendar.Snapshot, now time.Time) State {
	if !cfg.Enabled {
		return State{}
	}

	next, ok := events.NextUpcoming(now)
	if !ok {
		return State{}
	}

	window := float64(cfg.WindowMinutes)
	if window <= 0 {
		window = 15
	}
	remaining := next.MinutesUntilStart(now)
	if remaining > window {
		return State{Event: &next, MinutesRemaining: remaining}
	}

	progress := 1 - remaining/window
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return State{
		Event:            &next,
		MinutesRemaining: remaining,
		Progress:         progress,
		Active:           true,
	}
}

// Color returns the blended color for a single-zone device: a smooth
// per-channel ramp from idle to meeting. Inactive state always yields
// the idle color.
func (s State) Color(cfg Config) color.RGB {
	if !s.Active {
		return cfg.IdleColor
	}
	return color.Lerp(cfg.IdleColor, cfg.MeetingColor, s.Progress)
}

// ZoneColors partitions n zones for a multi-zone strip: floor(n*p)
// zones of meeting color from the left, the remainder idle.
func (s State) ZoneColors(cfg Config, n int) []color.RGB {
	if n <= 0 {
		return nil
	}
	zones := make([]color.RGB, n)
	filled := 0
	if s.Active {
		filled = int(float64(n) * s.Progress)
		if filled > n {
			filled = n
		}
	}
	for i := range zones {
		if i < filled {
			zones[i] = cfg.MeetingColor
		} else {
			zones[i] = cfg.IdleColor
		}
	}
	return zones
}
