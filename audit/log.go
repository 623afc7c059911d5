package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultQueryHours   = 24
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("audit log closed")

// Config configures a Log.
type Config struct {
	Dispatch DispatchConfig
	// WriteTimeout bounds each sink write. Zero means 5s.
	WriteTimeout time.Duration
	// DefaultQueryHours is used by Query for non-positive windows. Zero means 24.
	DefaultQueryHours int
}

// Option customizes a Log.
type Option func(*Log)

// WithAlerter sets the side effect for critical entries.
func WithAlerter(a Alerter) Option {
	return func(l *Log) { l.alerter = a }
}

// WithFallbackLogger sets where sink failures are reported.
func WithFallbackLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.fallback = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithWriteErrorHook is called after every failed sink write.
func WithWriteErrorHook(fn func(Entry, error)) Option {
	return func(l *Log) { l.onWriteError = fn }
}

// Log is the audit trail writer. Open it at process start and Close it at
// shutdown; it is safe for concurrent use in between.
type Log struct {
	cfg          Config
	sink         Sink
	alerter      Alerter
	fallback     *slog.Logger
	now          func() time.Time
	onWriteError func(Entry, error)
	ids          *idSource

	mu       sync.Mutex
	head     string
	dispatch *dispatcher

	closed    atomic.Bool
	closeOnce sync.Once
	failures  atomic.Uint64
}

// Open starts a Log over sink. If the sink can report its last hash, the
// new entries continue that chain.
func Open(ctx context.Context, cfg Config, sink Sink, opts ...Option) (*Log, error) {
	if sink == nil {
		return nil, errors.New("audit sink is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.DefaultQueryHours <= 0 {
		cfg.DefaultQueryHours = defaultQueryHours
	}

	l := &Log{
		cfg:      cfg,
		sink:     sink,
		fallback: slog.Default(),
		now:      time.Now,
		ids:      newIDSource(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if head, ok := sink.(ChainHead); ok {
		last, err := head.LastHash(ctx)
		if err != nil {
			l.fallback.WarnContext(ctx, "audit chain head unavailable, starting a new chain", "error", err)
		} else {
			l.head = last
		}
	}

	if cfg.Dispatch.Async {
		l.dispatch = newDispatcher(cfg.Dispatch, l.deliver)
	}
	return l, nil
}

// Record appends one entry and returns it. Sink failures are not returned;
// the only errors are ErrInvalidRecord and ErrClosed.
func (l *Log) Record(ctx context.Context, r Record) (Entry, error) {
	if err := r.validate(); err != nil {
		return Entry{}, err
	}
	if l.closed.Load() {
		l.fallback.WarnContext(ctx, "audit record after close", "event_type", string(r.EventType), "action", r.Action)
		return Entry{}, ErrClosed
	}
	// The entry is committed even if the caller goes away mid-request.
	ctx = context.WithoutCancel(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	// Close marks the log under mu, so an entry past this check is always
	// drained by the dispatcher.
	if l.closed.Load() {
		l.fallback.WarnContext(ctx, "audit record after close", "event_type", string(r.EventType), "action", r.Action)
		return Entry{}, ErrClosed
	}

	ts := l.now().UTC().Truncate(time.Microsecond)
	entry := Entry{
		ID:        l.ids.next(ts),
		Timestamp: ts,
		Level:     r.Level,
		EventType: r.EventType,
		Action:    r.Action,
		Success:   r.Success,
		IPAddress: r.Origin.IPAddress,
		UserAgent: r.Origin.UserAgent,
		UserID:    r.Actor.UserID,
		Email:     r.Actor.Email,
		Resource:  r.Resource,
		Details:   copyDetails(r.Details),
		PrevHash:  l.head,
	}
	hash, err := computeHash(entry)
	if err != nil {
		l.fallback.WarnContext(ctx, "audit entry not encodable", "event_type", string(r.EventType), "error", err)
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	entry.Hash = hash
	l.head = hash

	if l.dispatch == nil {
		l.deliver(entry)
		return entry, nil
	}
	if !l.dispatch.enqueue(ctx, entry) {
		l.fallback.WarnContext(ctx, "audit entry dropped", "entry_id", entry.ID, "event_type", string(entry.EventType))
	}
	return entry, nil
}

func (l *Log) deliver(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
	defer cancel()

	if err := l.sink.Write(ctx, entry); err != nil {
		l.failures.Add(1)
		l.fallback.WarnContext(ctx, "audit sink write failed",
			"error", err,
			"entry_id", entry.ID,
			"event_type", string(entry.EventType),
			"action", entry.Action,
		)
		if l.onWriteError != nil {
			l.onWriteError(entry, err)
		}
	}
	if entry.Level == LevelCritical && l.alerter != nil {
		l.alerter.Alert(ctx, entry)
	}
}

// Flush waits until every entry recorded so far reached the sink.
func (l *Log) Flush(ctx context.Context) error {
	if l.dispatch == nil {
		return nil
	}
	return l.dispatch.flush(ctx)
}

// Query returns the entries of the last sinceHours hours, oldest first.
// Non-positive sinceHours means Config.DefaultQueryHours. Sinks without
// read-back yield an empty result.
func (l *Log) Query(ctx context.Context, sinceHours int) ([]Entry, error) {
	if sinceHours <= 0 {
		sinceHours = l.cfg.DefaultQueryHours
	}
	reader, ok := l.sink.(Reader)
	if !ok {
		return []Entry{}, nil
	}
	if err := l.Flush(ctx); err != nil {
		return []Entry{}, err
	}

	since := l.now().UTC().Add(-time.Duration(sinceHours) * time.Hour)
	entries, err := reader.Query(ctx, since)
	if err != nil {
		return []Entry{}, fmt.Errorf("query audit sink: %w", err)
	}
	return entries, nil
}

// SupportsQuery reports whether the sink can read entries back.
func (l *Log) SupportsQuery() bool {
	_, ok := l.sink.(Reader)
	return ok
}

// Dropped returns how many entries never reached the sink because the
// dispatcher was full or closed.
func (l *Log) Dropped() uint64 {
	if l.dispatch == nil {
		return 0
	}
	return l.dispatch.dropped.Load()
}

// WriteFailures returns how many sink writes failed.
func (l *Log) WriteFailures() uint64 {
	return l.failures.Load()
}

// Close drains pending entries and closes the sink when it is an io.Closer.
// It is idempotent.
func (l *Log) Close(ctx context.Context) error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed.Store(true)
		l.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			if l.dispatch != nil {
				l.dispatch.close()
			}
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}

		if c, ok := l.sink.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
