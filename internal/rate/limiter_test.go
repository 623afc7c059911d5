package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestMemoryFourthRequestRejectedThenReset(t *testing.T) {
	clock := newClock()
	l := New(NewMemoryStore(clock.Now), clock.Now)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Admit(ctx, "10.0.0.1", 3, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("request %d expected allowed, got %+v %v", i, d, err)
		}
		if d.Count != int64(i) {
			t.Fatalf("request %d expected count %d, got %d", i, i, d.Count)
		}
	}

	clock.Advance(20 * time.Second)
	d, err := l.Admit(ctx, "10.0.0.1", 3, time.Minute)
	if !errors.Is(err, ErrRateLimited) || d.Allowed {
		t.Fatalf("4th request expected ErrRateLimited, got %+v %v", d, err)
	}
	if d.RetryAfter != 40*time.Second {
		t.Fatalf("expected retry after 40s, got %v", d.RetryAfter)
	}

	clock.Advance(40 * time.Second)
	d, err = l.Admit(ctx, "10.0.0.1", 3, time.Minute)
	if err != nil || !d.Allowed || d.Count != 1 {
		t.Fatalf("expected window reset to count 1, got %+v %v", d, err)
	}
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	clock := newClock()
	l := New(NewMemoryStore(clock.Now), clock.Now)
	ctx := context.Background()

	if _, err := l.Admit(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("first a: %v", err)
	}
	if _, err := l.Admit(ctx, "b", 1, time.Minute); err != nil {
		t.Fatalf("first b must not be affected by a: %v", err)
	}
	if _, err := l.Admit(ctx, "a", 1, time.Minute); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second a expected rejection, got %v", err)
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{-time.Second, time.Second},
		{0, time.Second},
		{500 * time.Millisecond, time.Second},
		{time.Second + time.Millisecond, 2 * time.Second},
		{14*time.Minute + 59*time.Second + 10*time.Millisecond, 15 * time.Minute},
	}
	for _, tc := range cases {
		if got := retryAfter(tc.in); got != tc.want {
			t.Fatalf("retryAfter(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAdmitRejectsInvalidRule(t *testing.T) {
	l := New(NewMemoryStore(nil), nil)
	if _, err := l.Admit(context.Background(), "a", 0, time.Minute); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
	if _, err := l.Admit(context.Background(), "a", 1, 0); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestMemoryConcurrentHitsCountExactly(t *testing.T) {
	store := NewMemoryStore(nil)
	l := New(store, nil)

	const workers = 16
	const perWorker = 50
	var allowed sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for w := 0; w < workers; w++ {
		allowed.Add(1)
		go func() {
			defer allowed.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := l.Admit(context.Background(), "shared", 100, time.Hour); err == nil {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	allowed.Wait()

	if admitted != 100 {
		t.Fatalf("expected exactly 100 admitted, got %d", admitted)
	}
}

func TestMemorySweepDropsExpired(t *testing.T) {
	clock := newClock()
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.Hit(ctx, fmt.Sprintf("k%d", i), time.Minute); err != nil {
			t.Fatalf("hit: %v", err)
		}
	}
	if store.Len() != 5 {
		t.Fatalf("expected 5 counters, got %d", store.Len())
	}
	clock.Advance(time.Minute)
	store.Sweep()
	if store.Len() != 0 {
		t.Fatalf("expected sweep to drop expired counters, got %d", store.Len())
	}
}

func TestRedisFourthRequestRejectedThenReset(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := newClock()
	l := New(NewRedisStore(rdb, "", clock.Now), clock.Now)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := l.Admit(ctx, "10.0.0.2", 3, time.Minute); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	d, err := l.Admit(ctx, "10.0.0.2", 3, time.Minute)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry after %v", d.RetryAfter)
	}

	mr.FastForward(time.Minute)
	d, err = l.Admit(ctx, "10.0.0.2", 3, time.Minute)
	if err != nil || d.Count != 1 {
		t.Fatalf("expected reset after window, got %+v %v", d, err)
	}
	if ttl := mr.TTL(DefaultRedisPrefix + "10.0.0.2"); ttl <= 0 {
		t.Fatalf("expected key to carry a TTL, got %v", ttl)
	}
}

func TestRedisRepairsMissingExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, "t:", nil)

	if err := mr.Set("t:stuck", "7"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := store.Hit(context.Background(), "stuck", time.Minute)
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if w.Count != 8 {
		t.Fatalf("expected count 8, got %d", w.Count)
	}
	if ttl := mr.TTL("t:stuck"); ttl <= 0 {
		t.Fatalf("expected expiry to be restored, got %v", ttl)
	}
}

func TestRedisResetTracksServerTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := newClock()
	store := NewRedisStore(rdb, "t:", clock.Now)
	ctx := context.Background()

	if _, err := store.Hit(ctx, "ip", time.Minute); err != nil {
		t.Fatalf("first hit: %v", err)
	}
	mr.FastForward(20 * time.Second)

	w, err := store.Hit(ctx, "ip", time.Minute)
	if err != nil {
		t.Fatalf("second hit: %v", err)
	}
	if w.Count != 2 {
		t.Fatalf("count = %d", w.Count)
	}
	if left := w.ResetAt.Sub(clock.Now()); left != 40*time.Second {
		t.Fatalf("second hit must not restart the window, %v left", left)
	}

	mr.FastForward(40 * time.Second)
	w, err = store.Hit(ctx, "ip", time.Minute)
	if err != nil {
		t.Fatalf("hit after expiry: %v", err)
	}
	if w.Count != 1 || w.ResetAt.Sub(clock.Now()) != time.Minute {
		t.Fatalf("expired key should open a fresh window, got %+v", w)
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewRedisStore(rdb, "", nil)
	mr.Close()

	if _, err := store.Hit(context.Background(), "k", time.Minute); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
