package memory

import (
	"context"
	"sync"
	"time"
)

// Limiter is a per-key token bucket: rate tokens per interval, refilled in
// whole intervals.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int
	interval time.Duration
	clock    func() time.Time
	lastGC   time.Time
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

// NewLimiter allows rate starts per interval for every key.
func NewLimiter(rate int, interval time.Duration) *Limiter {
	return &Limiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		clock:    time.Now,
	}
}

func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	if l.rate <= 0 || l.interval <= 0 {
		return true, nil
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.collect(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.rate, lastSeen: now}
		l.buckets[key] = b
	}

	refill := int(now.Sub(b.lastSeen)/l.interval) * l.rate
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.rate {
			b.tokens = l.rate
		}
		b.lastSeen = now
	}

	if b.tokens <= 0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// collect drops buckets idle for three intervals; called with mu held.
func (l *Limiter) collect(now time.Time) {
	if now.Sub(l.lastGC) < l.interval {
		return
	}
	l.lastGC = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > 3*l.interval {
			delete(l.buckets, key)
		}
	}
}
