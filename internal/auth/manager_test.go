package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/fault"
	"github.com/SargeyWargey/govee-status-light/internal/kv"
)

type fakeExchanger struct {
	mu           sync.Mutex
	refreshCalls int32
	refreshErr   error
	refreshSet   TokenSet
	exchangeSet  TokenSet
	block        chan struct{} // when non-nil, Refresh waits on it
}

func (f *fakeExchanger) AuthCodeURL(state string) string {
	return "https://example.test/authorize?state=" + state
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code string) (TokenSet, error) {
	return f.exchangeSet, nil
}

func (f *fakeExchanger) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return TokenSet{}, f.refreshErr
	}
	return f.refreshSet, nil
}

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, ex Exchanger, bucket kv.Bucket) *Manager {
	t.Helper()
	m, err := NewManager(ex, bucket, DefaultBuffer)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.now = func() time.Time { return testNow }
	return m
}

func freshTokens() TokenSet {
	return TokenSet{
		AccessToken:  "fresh-access",
		RefreshToken: "fresh-refresh",
		Expiry:       testNow.Add(time.Hour),
	}
}

func staleTokens() TokenSet {
	return TokenSet{
		AccessToken:  "stale-access",
		RefreshToken: "stale-refresh",
		Expiry:       testNow.Add(time.Minute), // inside the 5 minute buffer
	}
}

func TestToken_NoSession(t *testing.T) {
	m := newTestManager(t, &fakeExchanger{}, kv.NewMemoryBucket("auth"))

	if _, err := m.Token(context.Background()); !errors.Is(err, fault.ErrNotAuthenticated) {
		t.Errorf("Token with no session = %v, want ErrNotAuthenticated", err)
	}
	if got := m.State(); got != StateUnauthenticated {
		t.Errorf("State = %v, want unauthenticated", got)
	}
}

func TestToken_ValidNoRefresh(t *testing.T) {
	ex := &fakeExchanger{}
	m := newTestManager(t, ex, kv.NewMemoryBucket("auth"))
	m.tokens = &TokenSet{AccessToken: "good", Expiry: testNow.Add(time.Hour)}

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "good" {
		t.Errorf("Token = %q, want %q", token, "good")
	}
	if n := atomic.LoadInt32(&ex.refreshCalls); n != 0 {
		t.Errorf("refresh called %d times for a valid token", n)
	}
}

func TestToken_RefreshesStaleToken(t *testing.T) {
	ex := &fakeExchanger{refreshSet: freshTokens()}
	m := newTestManager(t, ex, kv.NewMemoryBucket("auth"))
	stale := staleTokens()
	m.tokens = &stale

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "fresh-access" {
		t.Errorf("Token = %q, want refreshed access token", token)
	}
	if n := atomic.LoadInt32(&ex.refreshCalls); n != 1 {
		t.Errorf("refresh called %d times, want 1", n)
	}
}

func TestToken_ConcurrentCallersSingleRefresh(t *testing.T) {
	ex := &fakeExchanger{
		refreshSet: freshTokens(),
		block:      make(chan struct{}),
	}
	m := newTestManager(t, ex, kv.NewMemoryBucket("auth"))
	stale := staleTokens()
	m.tokens = &stale

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Token(context.Background())
		}(i)
	}

	// Give every caller time to reach the manager, then release the
	// single in-flight exchange.
	time.Sleep(50 * time.Millisecond)
	close(ex.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != "fresh-access" {
			t.Errorf("caller %d got %q, want refreshed token", i, results[i])
		}
	}
	if n := atomic.LoadInt32(&ex.refreshCalls); n != 1 {
		t.Errorf("refresh called %d times for %d concurrent callers, want 1", n, callers)
	}
}

func TestToken_RefreshFailureClearsSession(t *testing.T) {
	ex := &fakeExchanger{refreshErr: errors.New("invalid_grant")}
	bucket := kv.NewMemoryBucket("auth")
	m := newTestManager(t, ex, bucket)
	stale := staleTokens()
	m.tokens = &stale
	m.persist(&stale)

	_, err := m.Token(context.Background())
	if !errors.Is(err, fault.ErrAuthExpired) {
		t.Fatalf("Token after failed refresh = %v, want ErrAuthExpired", err)
	}
	if got := m.State(); got != StateUnauthenticated {
		t.Errorf("State = %v, want unauthenticated", got)
	}

	// The stale set must not survive the failure, in memory or on disk.
	var saved TokenSet
	if ok, _ := bucket.Get("token_set", &saved); ok {
		t.Error("failed refresh left a persisted token set behind")
	}

	// Subsequent calls surface the stored failure, not a generic
	// not-authenticated.
	if _, err := m.Token(context.Background()); !errors.Is(err, fault.ErrAuthExpired) {
		t.Errorf("Token after cleared session = %v, want ErrAuthExpired", err)
	}
}

func TestToken_NoRefreshTokenExpires(t *testing.T) {
	ex := &fakeExchanger{refreshSet: freshTokens()}
	m := newTestManager(t, ex, kv.NewMemoryBucket("auth"))
	m.tokens = &TokenSet{AccessToken: "stale", Expiry: testNow.Add(time.Minute)}

	if _, err := m.Token(context.Background()); !errors.Is(err, fault.ErrAuthExpired) {
		t.Fatalf("Token without refresh token = %v, want ErrAuthExpired", err)
	}
	if n := atomic.LoadInt32(&ex.refreshCalls); n != 0 {
		t.Errorf("refresh attempted %d times with no refresh token", n)
	}
}

func TestToken_KeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	ex := &fakeExchanger{refreshSet: TokenSet{
		AccessToken: "fresh-access",
		Expiry:      testNow.Add(time.Hour),
	}}
	m := newTestManager(t, ex, kv.NewMemoryBucket("auth"))
	stale := staleTokens()
	m.tokens = &stale

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got := m.tokens.RefreshToken; got != "stale-refresh" {
		t.Errorf("RefreshToken = %q, want the previous one retained", got)
	}
}

func TestAuthenticate_PersistsAcrossRestart(t *testing.T) {
	bucket := kv.NewMemoryBucket("auth")
	ex := &fakeExchanger{exchangeSet: freshTokens()}
	m := newTestManager(t, ex, bucket)

	if err := m.Authenticate(context.Background(), "auth-code"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got := m.State(); got != StateAuthenticated {
		t.Errorf("State = %v, want authenticated", got)
	}

	restarted := newTestManager(t, ex, bucket)
	token, err := restarted.Token(context.Background())
	if err != nil {
		t.Fatalf("Token after restart: %v", err)
	}
	if token != "fresh-access" {
		t.Errorf("Token after restart = %q, want persisted token", token)
	}
}

func TestSignOut(t *testing.T) {
	bucket := kv.NewMemoryBucket("auth")
	m := newTestManager(t, &fakeExchanger{}, bucket)
	fresh := freshTokens()
	m.tokens = &fresh
	m.persist(&fresh)

	var states []State
	m.OnChange(func(s State) { states = append(states, s) })
	m.SignOut()

	if got := m.State(); got != StateUnauthenticated {
		t.Errorf("State after SignOut = %v, want unauthenticated", got)
	}
	var saved TokenSet
	if ok, _ := bucket.Get("token_set", &saved); ok {
		t.Error("SignOut left a persisted token set behind")
	}
	if len(states) != 1 || states[0] != StateUnauthenticated {
		t.Errorf("OnChange states = %v, want single unauthenticated transition", states)
	}
}

func TestTokenSet_ValidAt(t *testing.T) {
	set := TokenSet{AccessToken: "a", Expiry: testNow.Add(10 * time.Minute)}

	tests := []struct {
		name   string
		now    time.Time
		buffer time.Duration
		want   bool
	}{
		{"well before expiry", testNow, DefaultBuffer, true},
		{"inside buffer", testNow.Add(6 * time.Minute), DefaultBuffer, false},
		{"exactly at buffer edge", testNow.Add(5 * time.Minute), DefaultBuffer, false},
		{"after expiry", testNow.Add(11 * time.Minute), DefaultBuffer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.ValidAt(tt.now, tt.buffer); got != tt.want {
				t.Errorf("ValidAt = %v, want %v", got, tt.want)
			}
		})
	}

	empty := TokenSet{}
	if empty.ValidAt(testNow, 0) {
		t.Error("empty token set reported valid")
	}
}
