package progression

import (
	"testing"
	"time"
)

func newTestLimiter() *RateLimiter {
	return NewRateLimiter(RateLimits{
		Window: time.Minute,
		MaxPerKind: map[ActionKind]int{
			ActionFeed: 3,
			ActionGame: 2,
		},
	})
}

func TestAllowWithinCap(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1000, 0)

	for i := 0; i < 3; i++ {
		if !l.Allow(1, ActionFeed, now.Add(time.Duration(i)*time.Second)) {
			t.Fatalf("feed %d should be allowed", i+1)
		}
	}
	if l.Allow(1, ActionFeed, now.Add(3*time.Second)) {
		t.Fatal("4th feed within the window must be rejected")
	}
}

func TestSlidingWindowReopens(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1000, 0)

	l.Allow(1, ActionGame, now)
	l.Allow(1, ActionGame, now.Add(10*time.Second))
	if l.Allow(1, ActionGame, now.Add(20*time.Second)) {
		t.Fatal("3rd game within window must be rejected")
	}
	// once the first action slides out, capacity returns
	if !l.Allow(1, ActionGame, now.Add(61*time.Second)) {
		t.Fatal("game after window slide should be allowed")
	}
}

func TestPrincipalsAndKindsIsolated(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1000, 0)

	l.Allow(1, ActionGame, now)
	l.Allow(1, ActionGame, now)
	if !l.Allow(2, ActionGame, now) {
		t.Fatal("user 2 must not share user 1's window")
	}
	if !l.Allow(1, ActionFeed, now) {
		t.Fatal("feed window must not share the game window")
	}
}

// A timestamp older than one already seen for the key is a clock
// regression; the limiter fails closed instead of reopening the window.
func TestOutOfOrderTimestampFailsClosed(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1000, 0)

	l.Allow(1, ActionGame, now)
	l.Allow(1, ActionGame, now)
	if l.Allow(1, ActionGame, now.Add(-2*time.Minute)) {
		t.Fatal("backwards timestamp must be rejected")
	}
	// and the regression must not have cleared the window
	if l.Allow(1, ActionGame, now.Add(time.Second)) {
		t.Fatal("window must survive the regression attempt")
	}
}

func TestUnknownKindUnrestricted(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1000, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow(1, ActionKind("profile"), now) {
			t.Fatal("unlimited kind rejected")
		}
	}
}

func TestSweepDropsIdleWindows(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1000, 0)

	l.Allow(1, ActionGame, now)
	l.Allow(2, ActionGame, now.Add(90*time.Second))

	if dropped := l.Sweep(now.Add(2 * time.Minute)); dropped != 1 {
		t.Fatalf("dropped = %d", dropped)
	}
}
