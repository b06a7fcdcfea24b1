package color

import (
	"testing"

	"github.com/SargeyWargey/govee-status-light/internal/presence"
)

func TestNew_ClampsChannels(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b int
		want    RGB
	}{
		{"in range", 10, 20, 30, RGB{10, 20, 30}},
		{"negative", -5, 0, 300, RGB{0, 0, 255}},
		{"over max", 256, 999, 255, RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("New(%d, %d, %d) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestLerp_Boundaries(t *testing.T) {
	idle := New(0, 255, 0)
	meeting := New(255, 0, 0)

	if got := Lerp(idle, meeting, 0); got != idle {
		t.Errorf("Lerp at p=0 = %v, want idle %v", got, idle)
	}
	if got := Lerp(idle, meeting, 1); got != meeting {
		t.Errorf("Lerp at p=1 = %v, want meeting %v", got, meeting)
	}
	// Out-of-range progress clamps to the endpoints.
	if got := Lerp(idle, meeting, -0.5); got != idle {
		t.Errorf("Lerp at p=-0.5 = %v, want idle %v", got, idle)
	}
	if got := Lerp(idle, meeting, 1.5); got != meeting {
		t.Errorf("Lerp at p=1.5 = %v, want meeting %v", got, meeting)
	}
}

func TestLerp_Midpoint(t *testing.T) {
	got := Lerp(New(0, 255, 0), New(255, 0, 0), 0.5)
	if got.R != 127 && got.R != 128 {
		t.Errorf("R = %d, want 127 or 128", got.R)
	}
	if got.G != 127 && got.G != 128 {
		t.Errorf("G = %d, want 127 or 128", got.G)
	}
	if got.B != 0 {
		t.Errorf("B = %d, want 0", got.B)
	}
}

func TestPacked(t *testing.T) {
	tests := []struct {
		color RGB
		want  int
	}{
		{New(255, 0, 0), 0xFF0000},
		{New(0, 255, 0), 0x00FF00},
		{New(0, 0, 255), 0x0000FF},
		{New(255, 255, 255), 0xFFFFFF},
		{New(0, 0, 0), 0},
	}
	for _, tt := range tests {
		if got := tt.color.Packed(); got != tt.want {
			t.Errorf("%v.Packed() = %#x, want %#x", tt.color, got, tt.want)
		}
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#FF0000", New(255, 0, 0), false},
		{"00ff00", New(0, 255, 0), false},
		{"  #0000FF ", New(0, 0, 255), false},
		{"#FFF", RGB{}, true},
		{"nothex", RGB{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMapping_TotalLookups(t *testing.T) {
	m := Default()

	// Every presence state resolves to something.
	states := []presence.State{
		presence.StateAvailable, presence.StateAway, presence.StateBeRightBack,
		presence.StateBusy, presence.StateDoNotDisturb, presence.StateInACall,
		presence.StateInAMeeting, presence.StateOffline, presence.StateUnknown,
		presence.State("bogus"),
	}
	for _, s := range states {
		_ = m.ForPresence(s)
	}

	// Empty user mapping falls back everywhere.
	empty := Mapping{}
	if got := empty.ForPresence(presence.StateBusy); got != New(128, 128, 128) {
		t.Errorf("empty mapping ForPresence(busy) = %v, want gray fallback", got)
	}
	if got := empty.ForStage(StageFiveMinutes); got != New(255, 165, 0) {
		t.Errorf("empty mapping ForStage(five) = %v, want default orange", got)
	}
}

func TestMerge_OverlaysUserColors(t *testing.T) {
	user := Mapping{
		Presence: map[presence.State]RGB{
			presence.StateBusy: New(1, 2, 3),
		},
	}
	merged := Merge(user)
	if got := merged.ForPresence(presence.StateBusy); got != New(1, 2, 3) {
		t.Errorf("merged busy = %v, want user override", got)
	}
	if got := merged.ForPresence(presence.StateAvailable); got != New(0, 255, 0) {
		t.Errorf("merged available = %v, want default green", got)
	}
}
