package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

const (
	cleanupInterval = time.Hour
	idleTTL         = 24 * time.Hour
)

// Limiter decides whether a user may submit another request.
type Limiter interface {
	Allow(userID int64) bool
}

// UserLimiter keeps a token bucket per user: burst of requests, refilled
// evenly over window.
type UserLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[int64]*userEntry
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a limiter for requests per window. Call Stop to end the cleanup goroutine.
func New(requests int, window time.Duration) *UserLimiter {
	l := &UserLimiter{
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		limiters: make(map[int64]*userEntry),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go l.cleanup()
	return l
}

func (l *UserLimiter) Allow(userID int64) bool {
	now := l.now()
	l.mu.Lock()
	e, ok := l.limiters[userID]
	if !ok {
		e = &userEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	if e.limiter.AllowN(now, 1) {
		return true
	}
	logutils.Log.WithField("user_id", userID).Debug("Rate limit exceeded")
	return false
}

func (l *UserLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *UserLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

// evictIdle drops users not seen within idleTTL.
func (l *UserLimiter) evictIdle() int {
	cutoff := l.now().Add(-idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for userID, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, userID)
			removed++
		}
	}
	if removed > 0 {
		logutils.Log.WithField("removed", removed).Debug("Rate limiter cleanup completed")
	}
	return removed
}

// NoOp never limits. Used when rate limiting is disabled.
type NoOp struct{}

func (NoOp) Allow(int64) bool { return true }
