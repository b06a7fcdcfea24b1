package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/fault"
	"github.com/SargeyWargey/govee-status-light/internal/kv"
)

// DefaultBuffer is how far before the hard expiry a token is treated
// as stale and refreshed proactively.
const DefaultBuffer = 300 * time.Second

const tokenKey = "token_set"

// Manager is the token lifecycle state machine. It serializes refresh
// attempts: while one exchange is in flight, concurrent callers wait
// on it instead of issuing duplicates.
type Manager struct {
	exchanger Exchanger
	bucket    kv.Bucket
	buffer    time.Duration

	mu        sync.Mutex
	tokens    *TokenSet
	refreshCh chan struct{} // non-nil while a refresh is in flight
	lastErr   error

	onChange func(State)

	now func() time.Time
}

// NewManager creates a Manager, loading any persisted token set so a
// session survives process restarts.
func NewManager(exchanger Exchanger, bucket kv.Bucket, buffer time.Duration) (*Manager, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	m := &Manager{
		exchanger: exchanger,
		bucket:    bucket,
		buffer:    buffer,
		now:       time.Now,
	}

	var saved TokenSet
	ok, err := bucket.Get(tokenKey, &saved)
	if err != nil {
		return nil, fmt.Errorf("failed to load token set: %w", err)
	}
	if ok && saved.AccessToken != "" {
		m.tokens = &saved
		log.Info().Time("expiry", saved.Expiry).Msg("Restored OAuth session from store")
	}
	return m, nil
}

// OnChange registers a single callback invoked after every state
// transition, outside the manager lock.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.refreshCh != nil:
		return StateRefreshing
	case m.tokens != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// LastError returns the most recent refresh failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// AuthCodeURL returns the interactive authorization URL to hand to the
// user's browser.
func (m *Manager) AuthCodeURL(state string) string {
	return m.exchanger.AuthCodeURL(state)
}

// Authenticate completes the interactive flow: it exchanges the
// authorization code for an initial token set.
func (m *Manager) Authenticate(ctx context.Context, code string) error {
	tokens, err := m.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.tokens = &tokens
	m.lastErr = nil
	m.mu.Unlock()

	m.persist(&tokens)
	m.notify()
	log.Info().Time("expiry", tokens.Expiry).Msg("Authenticated")
	return nil
}

// Token returns a currently valid access token, refreshing first when
// the stored one is stale. Returns fault.ErrNotAuthenticated with no
// session and fault.ErrAuthExpired when the refresh exchange fails.
func (m *Manager) Token(ctx context.Context) (string, error) {
	for {
		m.mu.Lock()
		if m.tokens == nil && m.refreshCh == nil {
			err := m.lastErr
			m.mu.Unlock()
			if err != nil {
				return "", err
			}
			return "", fault.ErrNotAuthenticated
		}

		if m.tokens != nil && m.tokens.ValidAt(m.now(), m.buffer) {
			token := m.tokens.AccessToken
			m.mu.Unlock()
			return token, nil
		}

		// Stale. Join the in-flight refresh if there is one.
		if m.refreshCh != nil {
			ch := m.refreshCh
			m.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		if m.tokens.RefreshToken == "" {
			// Nothing to refresh with; the session is over.
			m.tokens = nil
			m.mu.Unlock()
			m.persist(nil)
			m.notify()
			return "", fault.ErrAuthExpired
		}

		ch := make(chan struct{})
		m.refreshCh = ch
		refreshToken := m.tokens.RefreshToken
		m.mu.Unlock()
		m.notify()

		if err := m.runRefresh(ctx, refreshToken, ch); err != nil {
			return "", err
		}
	}
}

// runRefresh performs the single in-flight refresh exchange and
// installs the outcome.
func (m *Manager) runRefresh(ctx context.Context, refreshToken string, ch chan struct{}) error {
	tokens, err := m.exchanger.Refresh(ctx, refreshToken)

	m.mu.Lock()
	m.refreshCh = nil
	if err != nil {
		// Irrecoverable: clear the session, no automatic retry.
		m.tokens = nil
		m.lastErr = fmt.Errorf("%w: %v", fault.ErrAuthExpired, err)
	} else {
		if tokens.RefreshToken == "" {
			// Some responses omit the refresh token; keep the old one.
			tokens.RefreshToken = refreshToken
		}
		m.tokens = &tokens
		m.lastErr = nil
	}
	saved := m.tokens
	m.mu.Unlock()
	close(ch)

	m.persist(saved)
	m.notify()

	if err != nil {
		log.Warn().Err(err).Msg("Token refresh failed, session cleared")
		return fmt.Errorf("%w: %v", fault.ErrAuthExpired, err)
	}
	log.Debug().Time("expiry", tokens.Expiry).Msg("Token refreshed")
	return nil
}

// SignOut clears all tokens unconditionally.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.tokens = nil
	m.lastErr = nil
	m.mu.Unlock()

	m.persist(nil)
	m.notify()
	log.Info().Msg("Signed out")
}

func (m *Manager) persist(tokens *TokenSet) {
	if tokens == nil {
		if _, err := m.bucket.Delete(tokenKey); err != nil {
			log.Warn().Err(err).Msg("Failed to delete persisted token set")
		}
		return
	}
	if err := m.bucket.Store(tokenKey, tokens); err != nil {
		log.Warn().Err(err).Msg("Failed to persist token set")
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	fn := m.onChange
	state := m.stateLocked()
	m.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
