package marketgate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/internal/rate"
	"github.com/MrEthical07/marketgate/jwt"
	"github.com/MrEthical07/marketgate/password"
)

// Engine is the authentication and authorization gate. All methods are safe
// for concurrent use.
type Engine struct {
	config    Config
	codec     *jwt.Manager
	hasher    *password.Hasher
	provider  IdentityProvider
	owners    ProductOwnerLookup
	limiter   *rate.Limiter
	audit     *audit.Log
	ownsAudit bool
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Close flushes and closes the audit log when the Engine opened it.
func (e *Engine) Close(ctx context.Context) error {
	if e == nil || e.audit == nil {
		return nil
	}
	if !e.ownsAudit {
		return e.audit.Flush(ctx)
	}
	return e.audit.Close(ctx)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// AuditLog exposes the audit log, for read-back and flushing.
func (e *Engine) AuditLog() *audit.Log {
	return e.audit
}

// AuditDropped returns how many audit entries were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
