package redis

import (
	"context"
	"testing"
	"time"
)

func TestLimiterFixedWindow(t *testing.T) {
	mr := runRedis(t)
	l := NewLimiter(newClient(mr), 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1:5")
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "10.0.0.1:5"); ok {
		t.Fatalf("third attempt should be throttled")
	}
	if ttl := mr.TTL("quiz:ratelimit:10.0.0.1:5"); ttl != time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute)
	if ok, _ := l.Allow(ctx, "10.0.0.1:5"); !ok {
		t.Fatalf("new window should allow again")
	}
}
