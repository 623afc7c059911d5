package marketgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/internal/rate"
	"github.com/MrEthical07/marketgate/jwt"
	"github.com/MrEthical07/marketgate/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. It is single-use: Build may be called once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	provider IdentityProvider
	owners   ProductOwnerLookup

	auditLog  *audit.Log
	auditSink audit.Sink
	alerter   audit.Alerter

	logger *slog.Logger
	now    func() time.Time

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis makes the rate limiter share its counters through client.
// Without it counters live in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider sets the identity store. Required.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithProductOwnerLookup enables AuthorizeProductOwnership.
func (b *Builder) WithProductOwnerLookup(l ProductOwnerLookup) *Builder {
	b.owners = l
	return b
}

// WithAuditLog uses an already opened log. The caller keeps ownership and
// must close it after the Engine.
func (b *Builder) WithAuditLog(l *audit.Log) *Builder {
	b.auditLog = l
	return b
}

// WithAuditSink makes Build open an audit log over sink. The Engine owns
// that log and closes it in Close.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithAlerter sets the alerting side effect of critical audit entries. It
// only applies to a log opened through WithAuditSink.
func (b *Builder) WithAlerter(a audit.Alerter) *Builder {
	b.alerter = a
	return b
}

// WithLogger sets the operational logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the wall clock for every time-dependent component.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if b.auditLog != nil && b.auditSink != nil {
		return nil, errors.New("use either WithAuditLog or WithAuditSink, not both")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	codec, err := jwt.NewManager(jwt.Config{
		Secret:   []byte(b.config.Credential.Secret),
		Lifetime: b.config.Credential.Lifetime,
		Issuer:   b.config.Credential.Issuer,
		Now:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("credential codec: %w", err)
	}

	hasher, err := password.New(b.config.Password)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	var store rate.Store
	if b.redis != nil {
		store = rate.NewRedisStore(b.redis, b.config.RateLimit.RedisPrefix, now)
	} else {
		store = rate.NewMemoryStore(now)
	}

	e := &Engine{
		config:   b.config,
		codec:    codec,
		hasher:   hasher,
		provider: b.provider,
		owners:   b.owners,
		limiter:  rate.New(store, now),
		metrics:  NewMetrics(b.config.Metrics),
		logger:   logger,
		now:      now,
	}

	switch {
	case b.auditLog != nil:
		e.audit = b.auditLog
	default:
		sink := b.auditSink
		if sink == nil {
			sink = audit.NewConsoleSink(logger)
		}
		opts := []audit.Option{
			audit.WithFallbackLogger(logger),
			audit.WithClock(now),
			audit.WithWriteErrorHook(func(audit.Entry, error) {
				e.metrics.Inc(MetricAuditWriteFailure)
			}),
		}
		if b.alerter != nil {
			opts = append(opts, audit.WithAlerter(b.alerter))
		} else {
			opts = append(opts, audit.WithAlerter(audit.LogAlerter{Logger: logger}))
		}
		log, err := audit.Open(context.Background(), audit.Config{
			Dispatch: audit.DispatchConfig{
				Async:      b.config.Audit.Async,
				BufferSize: b.config.Audit.BufferSize,
				DropIfFull: b.config.Audit.DropIfFull,
			},
			WriteTimeout:      b.config.Audit.WriteTimeout,
			DefaultQueryHours: b.config.Audit.DefaultQueryHours,
		}, sink, opts...)
		if err != nil {
			return nil, fmt.Errorf("audit log: %w", err)
		}
		e.audit = log
		e.ownsAudit = true
	}

	b.built = true
	return e, nil
}
