// Package resolver computes the target color for a device from its
// assignment and the latest presence and calendar snapshots. The
// resolution is pure and total: identical inputs always yield the same
// color, and missing data degrades to the next lower-priority source
// instead of erroring.
package resolver

import (
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
	"github.com/SargeyWargey/govee-status-light/internal/tracker"
)

// Input bundles everything a single resolution reads. Presence is nil
// when no observation has ever been made.
type Input struct {
	Assignment   device.Assignment
	Presence     *presence.Snapshot
	Events       calendar.Snapshot
	TrackerCfg   tracker.Config
	TrackerState tracker.State
	Mapping      color.Mapping
	Now          time.Time
}

// TargetColor resolves the color a device should display.
//
// Precedence: the tracker blend drives tracker-only devices always and
// "both" devices while the countdown is active. Otherwise the presence
// branch applies, where a busy upcoming event overlays the discrete
// legacy countdown stages on top of the plain presence color. With no
// presence ever observed, the unknown fallback color applies.
func TargetColor(in Input) color.RGB {
	if in.Assignment == device.AssignmentTracker ||
		(in.Assignment == device.AssignmentBoth && in.TrackerState.Active) {
		return in.TrackerState.Color(in.TrackerCfg)
	}

	if in.Presence == nil {
		return in.Mapping.ForPresence(presence.StateUnknown)
	}

	// Legacy countdown-stage overlay: presence-driven devices without
	// the full tracker still get coarse stage coloring for busy events.
	if stage, ok := legacyStage(in.Events, in.Now); ok {
		return in.Mapping.ForStage(stage)
	}

	return in.Mapping.ForPresence(in.Presence.State)
}

// legacyStage picks the discrete countdown stage for the earliest
// busy-classified event, most specific first: currently active, then
// <=1, <=5, <=15 minutes before start.
func legacyStage(events calendar.Snapshot, now time.Time) (color.CountdownStage, bool) {
	event, ok := events.NextUpcomingBusy(now)
	if !ok {
		return "", false
	}

	if event.IsActive(now) {
		return color.StageActive, true
	}
	switch minutes := event.MinutesUntilStart(now); {
	case minutes <= 1:
		return color.StageOneMinute, true
	case minutes <= 5:
		return color.StageFiveMinutes, true
	case minutes <= 15:
		return color.StageFifteenMinutes, true
	default:
		return "", false
	}
}
