package rate

import (
	"context"
	"fmt"
	"time"
)

// Window is the state of one counter after a hit.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Store counts hits per key in fixed windows. Implementations must make
// Hit atomic per key.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
}

// Decision describes the outcome of one Admit call.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter applies fixed-window limits on top of a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// New returns a Limiter over store. A nil now means time.Now.
func New(store Store, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, now: now}
}

// Admit counts one request for clientID. When the count exceeds max the
// returned Decision is not allowed and err wraps ErrRateLimited; RetryAfter
// is the time left in the window, rounded up to whole seconds (at least 1s).
func (l *Limiter) Admit(ctx context.Context, clientID string, max int, window time.Duration) (Decision, error) {
	if max <= 0 || window <= 0 {
		return Decision{}, ErrInvalidRule
	}

	w, err := l.store.Hit(ctx, clientID, window)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Allowed: w.Count <= int64(max),
		Count:   w.Count,
		Limit:   int64(max),
		ResetAt: w.ResetAt,
	}
	if d.Allowed {
		return d, nil
	}

	d.RetryAfter = retryAfter(w.ResetAt.Sub(l.now()))
	return d, fmt.Errorf("%w: %d/%d", ErrRateLimited, w.Count, max)
}

func retryAfter(remaining time.Duration) time.Duration {
	if remaining <= time.Second {
		return time.Second
	}
	secs := (remaining + time.Second - 1) / time.Second
	return secs * time.Second
}
