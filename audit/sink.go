package audit

import (
	"context"
	"sync"
	"time"
)

// Sink persists entries. Write must not interleave concurrent entries.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Reader is implemented by sinks that support read-back. Query returns the
// entries at or after since, oldest first.
type Reader interface {
	Query(ctx context.Context, since time.Time) ([]Entry, error)
}

// ChainHead is implemented by sinks that can report the hash of their last
// entry, so a reopened Log continues the existing chain.
type ChainHead interface {
	LastHash(ctx context.Context) (string, error)
}

// NoOpSink discards every entry.
type NoOpSink struct{}

// Write implements Sink.
func (NoOpSink) Write(context.Context, Entry) error { return nil }

// MemorySink keeps entries in memory. It is meant for tests and local runs.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
	fail    error
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.entries = append(s.entries, entry)
	return nil
}

// FailWith makes subsequent writes return err; nil restores normal behavior.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Query implements Reader.
func (s *MemorySink) Query(_ context.Context, since time.Time) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// LastHash implements ChainHead.
func (s *MemorySink) LastHash(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return "", nil
	}
	return s.entries[len(s.entries)-1].Hash, nil
}

// Entries returns a copy of everything written so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Count returns how many entries of type t were written.
func (s *MemorySink) Count(t EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.EventType == t {
			n++
		}
	}
	return n
}
