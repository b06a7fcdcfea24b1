package tracker

import (
	"testing"
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/color"
)

func testConfig() Config {
	return Config{
		Enabled:       true,
		WindowMinutes: 15,
		IdleColor:     color.New(0, 255, 0),
		MeetingColor:  color.New(255, 0, 0),
	}
}

func snapshotWithEventIn(start time.Time, lead time.Duration) calendar.Snapshot {
	event := calendar.Event{
		ID:    "evt-1",
		Start: start.Add(lead),
		End:   start.Add(lead + 30*time.Minute),
	}
	return calendar.NewSnapshot([]calendar.Event{event}, start)
}

func TestCompute_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	now := time.Now()

	state := Compute(cfg, snapshotWithEventIn(now, 5*time.Minute), now)
	if state.Active {
		t.Error("disabled tracker reported active")
	}
	if state.Progress != 0 {
		t.Errorf("Progress = %v, want 0 while disabled", state.Progress)
	}
}

func TestCompute_NoUpcomingEvents(t *testing.T) {
	now := time.Now()
	state := Compute(testConfig(), calendar.Snapshot{}, now)
	if state.Active || state.Event != nil {
		t.Errorf("empty calendar produced state %+v", state)
	}
}

func TestCompute_OutsideWindowInactive(t *testing.T) {
	now := time.Now()
	state := Compute(testConfig(), snapshotWithEventIn(now, 30*time.Minute), now)
	if state.Active {
		t.Error("event 30 minutes out reported active with 15 minute window")
	}
	if state.Event == nil {
		t.Error("no chosen event reported")
	}
	if state.Progress != 0 {
		t.Errorf("Progress = %v, want 0 while inactive", state.Progress)
	}
}

func TestCompute_ProgressBoundaries(t *testing.T) {
	now := time.Now()
	cfg := testConfig()

	// At exactly window minutes out, progress is ~0.
	state := Compute(cfg, snapshotWithEventIn(now, 15*time.Minute), now)
	if !state.Active {
		t.Fatal("event at window edge not active")
	}
	if state.Progress > 0.001 {
		t.Errorf("Progress at window edge = %v, want ~0", state.Progress)
	}

	// Just before start, progress is ~1.
	state = Compute(cfg, snapshotWithEventIn(now, time.Second), now)
	if state.Progress < 0.99 {
		t.Errorf("Progress just before start = %v, want ~1", state.Progress)
	}
}

func TestCompute_ProgressMonotonic(t *testing.T) {
	base := time.Now()
	cfg := testConfig()
	events := snapshotWithEventIn(base, 15*time.Minute)

	prev := -1.0
	for offset := time.Duration(0); offset < 15*time.Minute; offset += 30 * time.Second {
		state := Compute(cfg, events, base.Add(offset))
		if state.Progress < prev {
			t.Fatalf("progress decreased from %v to %v at offset %v", prev, state.Progress, offset)
		}
		if state.Progress < 0 || state.Progress > 1 {
			t.Fatalf("progress %v out of [0,1] at offset %v", state.Progress, offset)
		}
		prev = state.Progress
	}
}

func TestCompute_HalfwayBlend(t *testing.T) {
	// Window 15 min, event in 7.5 min: progress 0.5, blend halfway.
	now := time.Now()
	state := Compute(testConfig(), snapshotWithEventIn(now, 450*time.Second), now)
	if state.Progress < 0.499 || state.Progress > 0.501 {
		t.Fatalf("Progress = %v, want 0.5", state.Progress)
	}

	blended := state.Color(testConfig())
	if blended.R != 127 && blended.R != 128 {
		t.Errorf("R = %d, want 127 or 128", blended.R)
	}
	if blended.G != 127 && blended.G != 128 {
		t.Errorf("G = %d, want 127 or 128", blended.G)
	}
	if blended.B != 0 {
		t.Errorf("B = %d, want 0", blended.B)
	}
}

func TestState_ColorInactiveIsIdle(t *testing.T) {
	cfg := testConfig()
	if got := (State{}).Color(cfg); got != cfg.IdleColor {
		t.Errorf("inactive Color() = %v, want idle %v", got, cfg.IdleColor)
	}
}

func TestZoneColors(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name       string
		state      State
		n          int
		wantFilled int
	}{
		{"inactive", State{}, 4, 0},
		{"quarter", State{Active: true, Progress: 0.25}, 4, 1},
		{"half rounds down", State{Active: true, Progress: 0.5}, 5, 2},
		{"complete", State{Active: true, Progress: 1}, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := tt.state.ZoneColors(cfg, tt.n)
			if len(zones) != tt.n {
				t.Fatalf("got %d zones, want %d", len(zones), tt.n)
			}
			filled := 0
			for _, z := range zones {
				if z == cfg.MeetingColor {
					filled++
				}
			}
			if filled != tt.wantFilled {
				t.Errorf("filled zones = %d, want %d", filled, tt.wantFilled)
			}
			// Meeting zones fill left-to-right.
			for i := 0; i < tt.wantFilled; i++ {
				if zones[i] != cfg.MeetingColor {
					t.Errorf("zone %d = %v, want meeting color", i, zones[i])
				}
			}
		})
	}
}
