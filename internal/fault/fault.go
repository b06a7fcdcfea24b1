// Package fault defines the error kinds surfaced by the core.
// Every external call site converts failures into one of these kinds
// so callers can match with errors.Is instead of string inspection.
package fault

import "errors"

var (
	// ErrNotAuthenticated indicates no valid token or API key is present.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthExpired indicates a token refresh failed and the session was
	// cleared; an interactive re-authentication is required.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrRateLimited indicates the upstream rejected a request with a
	// budget-exceeded response. Distinct from local admission control,
	// which delays requests instead of failing them.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrDeviceNotFound indicates a command referenced an unknown device.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrInvalidResponse indicates a malformed or unexpected payload.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrNetwork indicates a transport-level failure.
	ErrNetwork = errors.New("network error")

	// ErrConfiguration indicates missing or inconsistent configuration,
	// e.g. no OAuth client id.
	ErrConfiguration = errors.New("configuration error")
)
