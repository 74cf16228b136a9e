package ratelimit

import (
	"os"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	os.Exit(m.Run())
}

func newTestLimiter(t *testing.T, requests int, window time.Duration) (*UserLimiter, *time.Time) {
	t.Helper()
	l := New(requests, window)
	t.Cleanup(l.Stop)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestUserLimiter_Burst(t *testing.T) {
	l, clock := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(1) {
		t.Error("fourth request within the window should be denied")
	}
	if !l.Allow(2) {
		t.Error("other users have their own bucket")
	}

	*clock = clock.Add(20 * time.Second)
	if !l.Allow(1) {
		t.Error("one token should refill after window/requests")
	}
	if l.Allow(1) {
		t.Error("only one token should have refilled")
	}
}

func TestUserLimiter_EvictIdle(t *testing.T) {
	l, clock := newTestLimiter(t, 1, time.Minute)
	l.Allow(1)
	*clock = clock.Add(idleTTL + time.Minute)
	l.Allow(2)

	if removed := l.evictIdle(); removed != 1 {
		t.Errorf("evictIdle removed %d, want 1", removed)
	}
	if _, ok := l.limiters[2]; !ok {
		t.Error("active user should be kept")
	}
}

func TestNoOp(t *testing.T) {
	var l Limiter = NoOp{}
	for i := 0; i < 100; i++ {
		if !l.Allow(1) {
			t.Fatal("NoOp must always allow")
		}
	}
}
