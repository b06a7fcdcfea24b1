// Package presence models the user availability signal polled from
// Microsoft Graph.
package presence

import (
	"strings"
	"time"
)

// State is the normalized availability value.
type State string

const (
	StateAvailable    State = "available"
	StateAway         State = "away"
	StateBeRightBack  State = "be_right_back"
	StateBusy         State = "busy"
	StateDoNotDisturb State = "do_not_disturb"
	StateInACall      State = "in_a_call"
	StateInAMeeting   State = "in_a_meeting"
	StateOffline      State = "offline"
	StateUnknown      State = "unknown"
)

// ParseState maps a Graph availability/activity string to a State.
// Unrecognized values map to StateUnknown rather than failing: the
// engine degrades to the fallback color instead of erroring.
func ParseState(s string) State {
	switch strings.ToLower(strings.ReplaceAll(s, " ", "")) {
	case "available", "availableidle":
		return StateAvailable
	case "away":
		return StateAway
	case "berightback":
		return StateBeRightBack
	case "busy", "busyidle":
		return StateBusy
	case "donotdisturb", "presenting", "focusing", "urgentinterruptionsonly":
		return StateDoNotDisturb
	case "inacall", "inaconferencecall":
		return StateInACall
	case "inameeting":
		return StateInAMeeting
	case "offline", "offwork":
		return StateOffline
	default:
		return StateUnknown
	}
}

// Snapshot is one observation of the presence signal. Snapshots are
// immutable; each successful poll replaces the previous one wholesale.
type Snapshot struct {
	State      State     `json:"state"`
	Activity   string    `json:"activity,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}
