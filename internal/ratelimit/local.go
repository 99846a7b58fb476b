package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	localMaxKeys = 10000
	localIdleTTL = 10 * time.Minute
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is the in-process fallback used when redis is absent or
// unreachable. Limits are per replica.
type LocalLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	now     func() time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		entries: make(map[string]*localEntry),
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(key string, r float64, burst int) *Result {
	now := l.now()

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= localMaxKeys {
			l.pruneLocked(now)
		}
		entry = &localEntry{limiter: rate.NewLimiter(rate.Limit(r), burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return &Result{Allowed: false, Limit: burst}
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return &Result{Allowed: false, Limit: burst, RetryAfter: delay}
	}
	return &Result{
		Allowed:   true,
		Limit:     burst,
		Remaining: int(entry.limiter.TokensAt(now)),
	}
}

func (l *LocalLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > localIdleTTL {
			delete(l.entries, key)
		}
	}
}
