package resolver

import (
	"testing"
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
	"github.com/SargeyWargey/govee-status-light/internal/tracker"
)

var now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func snapshotOf(state presence.State) *presence.Snapshot {
	return &presence.Snapshot{State: state, ObservedAt: now}
}

func busyEventIn(lead time.Duration) calendar.Snapshot {
	return calendar.NewSnapshot([]calendar.Event{{
		ID:         "evt-1",
		Start:      now.Add(lead),
		End:        now.Add(lead + 30*time.Minute),
		BusyStatus: calendar.BusyStatusBusy,
	}}, now)
}

func trackerConfig() tracker.Config {
	return tracker.Config{
		Enabled:       true,
		WindowMinutes: 15,
		IdleColor:     color.New(0, 255, 0),
		MeetingColor:  color.New(255, 0, 0),
	}
}

func baseInput() Input {
	return Input{
		Assignment: device.AssignmentPresence,
		Mapping:    color.Default(),
		TrackerCfg: trackerConfig(),
		Now:        now,
	}
}

func TestTargetColor_PresenceOnly(t *testing.T) {
	// Presence busy, no events: plain busy color.
	in := baseInput()
	in.Presence = snapshotOf(presence.StateBusy)

	want := color.Default().ForPresence(presence.StateBusy)
	if got := TargetColor(in); got != want {
		t.Errorf("TargetColor = %v, want busy color %v", got, want)
	}
}

func TestTargetColor_NoPresenceFallsBack(t *testing.T) {
	in := baseInput()

	want := color.Default().ForPresence(presence.StateUnknown)
	if got := TargetColor(in); got != want {
		t.Errorf("TargetColor with no presence = %v, want unknown color %v", got, want)
	}
}

func TestTargetColor_LegacyStageOverlay(t *testing.T) {
	// Busy event in 3 minutes beats the plain available color via the
	// five-minute stage.
	in := baseInput()
	in.Presence = snapshotOf(presence.StateAvailable)
	in.Events = busyEventIn(3 * time.Minute)

	want := color.Default().ForStage(color.StageFiveMinutes)
	if got := TargetColor(in); got != want {
		t.Errorf("TargetColor = %v, want five-minute stage color %v", got, want)
	}
}

func TestTargetColor_LegacyStagePrecedence(t *testing.T) {
	tests := []struct {
		name string
		lead time.Duration
		want color.CountdownStage
	}{
		{"active event", -5 * time.Minute, color.StageActive},
		{"under a minute", 30 * time.Second, color.StageOneMinute},
		{"under five", 4 * time.Minute, color.StageFiveMinutes},
		{"under fifteen", 12 * time.Minute, color.StageFifteenMinutes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			in.Presence = snapshotOf(presence.StateAvailable)
			in.Events = busyEventIn(tt.lead)

			want := color.Default().ForStage(tt.want)
			if got := TargetColor(in); got != want {
				t.Errorf("TargetColor = %v, want %v stage color %v", got, tt.want, want)
			}
		})
	}
}

func TestTargetColor_FarEventNoOverlay(t *testing.T) {
	in := baseInput()
	in.Presence = snapshotOf(presence.StateAvailable)
	in.Events = busyEventIn(40 * time.Minute)

	want := color.Default().ForPresence(presence.StateAvailable)
	if got := TargetColor(in); got != want {
		t.Errorf("TargetColor = %v, want plain available color %v", got, want)
	}
}

func TestTargetColor_FreeEventNoOverlay(t *testing.T) {
	// The legacy overlay only considers busy-classified events.
	in := baseInput()
	in.Presence = snapshotOf(presence.StateAvailable)
	in.Events = calendar.NewSnapshot([]calendar.Event{{
		ID:         "evt-free",
		Start:      now.Add(3 * time.Minute),
		End:        now.Add(33 * time.Minute),
		BusyStatus: calendar.BusyStatusFree,
	}}, now)

	want := color.Default().ForPresence(presence.StateAvailable)
	if got := TargetColor(in); got != want {
		t.Errorf("TargetColor = %v, want plain available color %v", got, want)
	}
}

func TestTargetColor_TrackerOnly(t *testing.T) {
	in := baseInput()
	in.Assignment = device.AssignmentTracker
	in.Presence = snapshotOf(presence.StateBusy)
	in.TrackerState = tracker.State{Active: true, Progress: 1}

	if got := TargetColor(in); got != in.TrackerCfg.MeetingColor {
		t.Errorf("TargetColor = %v, want meeting color %v", got, in.TrackerCfg.MeetingColor)
	}

	// Inactive tracker on a tracker-only device shows the idle color,
	// regardless of presence.
	in.TrackerState = tracker.State{}
	if got := TargetColor(in); got != in.TrackerCfg.IdleColor {
		t.Errorf("TargetColor inactive = %v, want idle color %v", got, in.TrackerCfg.IdleColor)
	}
}

func TestTargetColor_BothPrefersActiveTracker(t *testing.T) {
	in := baseInput()
	in.Assignment = device.AssignmentBoth
	in.Presence = snapshotOf(presence.StateAvailable)
	in.TrackerState = tracker.State{Active: true, Progress: 0.5}

	want := color.Lerp(in.TrackerCfg.IdleColor, in.TrackerCfg.MeetingColor, 0.5)
	if got := TargetColor(in); got != want {
		t.Errorf("TargetColor = %v, want blend %v", got, want)
	}

	// With the tracker inactive, "both" falls back to presence.
	in.TrackerState = tracker.State{}
	wantPresence := color.Default().ForPresence(presence.StateAvailable)
	if got := TargetColor(in); got != wantPresence {
		t.Errorf("TargetColor inactive = %v, want presence color %v", got, wantPresence)
	}
}

func TestTargetColor_Deterministic(t *testing.T) {
	in := baseInput()
	in.Presence = snapshotOf(presence.StateAvailable)
	in.Events = busyEventIn(3 * time.Minute)

	first := TargetColor(in)
	for i := 0; i < 10; i++ {
		if got := TargetColor(in); got != first {
			t.Fatalf("resolution %d = %v, differs from first %v", i, got, first)
		}
	}
}
