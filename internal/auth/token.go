// Package auth owns the OAuth bearer session: the token set, its
// expiry, and the state machine that refreshes it transparently while
// the polling loops run.
package auth

import "time"

// TokenSet is the bearer session material. Exactly one logically-valid
// instance exists at a time; absence means not authenticated.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// ValidAt reports whether the access token may still be used at now,
// leaving buffer headroom before the hard expiry.
func (t TokenSet) ValidAt(now time.Time, buffer time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.Expiry.Add(-buffer))
}

// State names the lifecycle state for the status surface.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)
