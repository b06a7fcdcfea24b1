// Package ratelimit implements the admission control for outgoing
// device commands: a sliding window of recorded admissions bounded to
// maxRequests per window.
//
// Unlike a token bucket, a caller that has to wait records the slot it
// will occupy (now + wait) rather than the instant it wakes up. A burst
// of simultaneous waiters is thereby serialized into evenly spaced
// slots instead of all waking at once and overshooting the budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most maxRequests calls per window.
// Safe for concurrent use; all window mutation happens under one mutex.
type Limiter struct {
	mu     sync.Mutex
	window []time.Time

	maxRequests int
	windowLen   time.Duration

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter. The vendor budget for the Govee control API is
// 10 requests per 60 seconds.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		maxRequests: maxRequests,
		windowLen:   window,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Admit blocks until the caller may issue one request, then records the
// admission. Returns the context error if cancelled while waiting; a
// cancelled wait does not consume a slot.
func (l *Limiter) Admit(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.window) < l.maxRequests {
			l.window = append(l.window, now)
			l.mu.Unlock()
			return nil
		}

		// Window is full. Claim the slot that opens when the oldest
		// admission ages out, so concurrent waiters stack into spaced
		// slots rather than racing for the same opening.
		oldest := l.window[0]
		wait := l.windowLen - now.Sub(oldest)
		if wait <= 0 {
			// Oldest entry aged out between prune and here; retry.
			l.mu.Unlock()
			continue
		}
		slot := now.Add(wait)
		l.window = append(l.window[1:], slot)
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			l.release(slot)
			return err
		}
		return nil
	}
}

// release gives back a claimed slot after a cancelled wait.
func (l *Limiter) release(slot time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ts := range l.window {
		if ts.Equal(slot) {
			l.window = append(l.window[:i], l.window[i+1:]...)
			return
		}
	}
}

// prune drops admissions older than the window. Caller holds the lock.
// Slots claimed in the future by waiters sort last and are never pruned
// prematurely because the slice stays ordered by timestamp.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.windowLen)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// Pending returns the number of admissions currently recorded in the
// window, including slots claimed by waiters. Exposed for the status
// surface.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.window)
}
