package rate

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 1024

type counter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in a process-local map.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	hits     uint64
}

// NewMemoryStore returns an empty store. A nil now means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		counters: make(map[string]*counter),
		now:      now,
	}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.hits++
	if s.hits%sweepInterval == 0 {
		s.sweepLocked(now)
	}

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{count: 0, resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++

	return Window{Count: c.count, ResetAt: c.resetAt}, nil
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Sweep drops every counter whose window has closed.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}
