package progression

import (
	"sync"
	"time"
)

// ActionKind names a rate-limited action class.
type ActionKind string

const (
	ActionFeed ActionKind = "feed"
	ActionGame ActionKind = "game"
)

// RateLimits caps actions per principal within a trailing window.
type RateLimits struct {
	Window     time.Duration
	MaxPerKind map[ActionKind]int
}

type rateKey struct {
	userID int64
	kind   ActionKind
}

type rateWindow struct {
	stamps []time.Time
	latest time.Time
}

// RateLimiter is a sliding-window counter per (principal, action kind).
// Windows follow the action timestamps, so a caller presenting a
// timestamp older than one it already presented for the same key is
// rejected outright: clock regressions must not reopen a window.
type RateLimiter struct {
	mu      sync.Mutex
	limits  RateLimits
	windows map[rateKey]*rateWindow
}

func NewRateLimiter(limits RateLimits) *RateLimiter {
	if limits.Window <= 0 {
		limits.Window = time.Minute
	}
	return &RateLimiter{
		limits:  limits,
		windows: make(map[rateKey]*rateWindow),
	}
}

// Allow records the action at now and reports whether it fits the cap.
// Unknown action kinds are unrestricted.
func (l *RateLimiter) Allow(userID int64, kind ActionKind, now time.Time) bool {
	max, ok := l.limits.MaxPerKind[kind]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := rateKey{userID: userID, kind: kind}
	w := l.windows[key]
	if w == nil {
		w = &rateWindow{}
		l.windows[key] = w
	}

	// fail closed on out-of-order input
	if now.Before(w.latest) {
		return false
	}
	w.latest = now

	cutoff := now.Add(-l.limits.Window)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Sweep drops windows idle for longer than the window size. Called
// periodically so the map does not grow with every principal ever seen.
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	cutoff := now.Add(-l.limits.Window)
	for key, w := range l.windows {
		if w.latest.Before(cutoff) {
			delete(l.windows, key)
			dropped++
		}
	}
	return dropped
}
