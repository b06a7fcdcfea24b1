package color

import (
	"github.com/SargeyWargey/govee-status-light/internal/presence"
)

// CountdownStage is one of the discrete buckets used by the legacy
// countdown overlay on presence-driven devices.
type CountdownStage string

const (
	StageFifteenMinutes CountdownStage = "fifteen_minutes"
	StageFiveMinutes    CountdownStage = "five_minutes"
	StageOneMinute      CountdownStage = "one_minute"
	StageActive         CountdownStage = "active"
)

// Mapping is a total function from presence state to color and from
// countdown stage to color. Lookups never miss: states or stages
// without an explicit entry fall back to the unknown/default color.
type Mapping struct {
	Presence  map[presence.State]RGB `yaml:"presence"`
	Countdown map[CountdownStage]RGB `yaml:"countdown"`
}

// Default returns the built-in mapping.
func Default() Mapping {
	return Mapping{
		Presence: map[presence.State]RGB{
			presence.StateAvailable:    New(0, 255, 0),
			presence.StateAway:         New(255, 255, 0),
			presence.StateBeRightBack:  New(255, 255, 0),
			presence.StateBusy:         New(255, 0, 0),
			presence.StateDoNotDisturb: New(139, 0, 0),
			presence.StateInACall:      New(255, 0, 0),
			presence.StateInAMeeting:   New(255, 0, 0),
			presence.StateOffline:      New(128, 128, 128),
			presence.StateUnknown:      New(128, 128, 128),
		},
		Countdown: map[CountdownStage]RGB{
			StageFifteenMinutes: New(255, 255, 0),
			StageFiveMinutes:    New(255, 165, 0),
			StageOneMinute:      New(255, 0, 0),
			StageActive:         New(139, 0, 0),
		},
	}
}

// ForPresence looks up the color for a presence state, falling back to
// the unknown color, then gray, so the lookup is total.
func (m Mapping) ForPresence(s presence.State) RGB {
	if c, ok := m.Presence[s]; ok {
		return c
	}
	if c, ok := m.Presence[presence.StateUnknown]; ok {
		return c
	}
	return New(128, 128, 128)
}

// ForStage looks up the color for a countdown stage with the same
// total-lookup guarantee.
func (m Mapping) ForStage(stage CountdownStage) RGB {
	if c, ok := m.Countdown[stage]; ok {
		return c
	}
	return Default().Countdown[stage]
}

// Merge overlays non-empty user-configured entries onto the defaults.
// The result is always total: user config can recolor states but not
// remove them.
func Merge(user Mapping) Mapping {
	out := Default()
	for state, c := range user.Presence {
		out.Presence[state] = c
	}
	for stage, c := range user.Countdown {
		out.Countdown[stage] = c
	}
	return out
}
