package marketgate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/marketgate/audit"
)

func actorOf(id Identity) audit.Actor {
	return audit.Actor{UserID: id.ID, Email: id.Email}
}

// record writes one audit entry with request origin and route details taken
// from ctx. It never fails the caller.
func (e *Engine) record(ctx context.Context, r audit.Record) {
	r.Origin = audit.Origin{
		IPAddress: ClientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}
	if rt, ok := routeFromContext(ctx); ok {
		details := make(map[string]any, len(r.Details)+2)
		for k, v := range r.Details {
			details[k] = v
		}
		details["method"] = rt.method
		details["path"] = rt.path
		r.Details = details
	}
	if r.Level == audit.LevelCritical {
		e.metricInc(MetricCriticalEvent)
	}
	if _, err := e.audit.Record(ctx, r); err != nil {
		e.logger.WarnContext(ctx, "audit record rejected", "event_type", string(r.EventType), "error", err)
	}
}

// rejectionEvent classifies a rejection for the audit trail.
func rejectionEvent(err error) audit.EventType {
	switch {
	case errors.Is(err, ErrInsufficientRole), errors.Is(err, ErrNotOwner):
		return audit.EventUnauthorizedAccess
	case errors.Is(err, ErrRateLimitExceeded):
		return audit.EventRateLimitExceeded
	default:
		return audit.EventAuthFailure
	}
}

func rejectionMetric(err error) (MetricID, bool) {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return MetricMissingCredential, true
	case errors.Is(err, ErrInvalidCredential):
		return MetricInvalidCredential, true
	case errors.Is(err, ErrExpiredCredential):
		return MetricExpiredCredential, true
	case errors.Is(err, ErrUserNotFound):
		return MetricUserNotFound, true
	case errors.Is(err, ErrAccountDeactivated):
		return MetricAccountDeactivated, true
	case errors.Is(err, ErrStoreUnavailable):
		return MetricStoreUnavailable, true
	case errors.Is(err, ErrInsufficientRole):
		return MetricInsufficientRole, true
	case errors.Is(err, ErrNotOwner):
		return MetricNotOwner, true
	case errors.Is(err, ErrSessionTimeout):
		return MetricSessionTimeout, true
	case errors.Is(err, ErrRateLimitExceeded):
		return MetricRateLimitHit, true
	}
	return 0, false
}

// reject audits a terminal decision at warning level and counts it.
func (e *Engine) reject(ctx context.Context, err error, action string, actor audit.Actor, resource string, details map[string]any) error {
	return e.rejectAs(ctx, rejectionEvent(err), err, action, actor, resource, details)
}

// rejectAs is reject with the event type chosen by the caller.
func (e *Engine) rejectAs(ctx context.Context, event audit.EventType, err error, action string, actor audit.Actor, resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["reason"] = err.Error()

	e.record(ctx, audit.Record{
		Level:     audit.LevelWarning,
		EventType: event,
		Action:    action,
		Actor:     actor,
		Resource:  resource,
		Details:   details,
		Success:   false,
	})
	if id, ok := rejectionMetric(err); ok {
		e.metricInc(id)
	}
	return err
}

// RecordAdminAction audits an administrative action performed by actor.
func (e *Engine) RecordAdminAction(ctx context.Context, actor Identity, action, resource string, details map[string]any) {
	e.record(ctx, audit.Record{
		Level:     audit.LevelAudit,
		EventType: audit.EventAdminAction,
		Action:    action,
		Actor:     actorOf(actor),
		Resource:  resource,
		Details:   details,
		Success:   true,
	})
}

// RecordFileUpload audits an accepted upload.
func (e *Engine) RecordFileUpload(ctx context.Context, actor Identity, filename string, size int64, contentType string) {
	e.record(ctx, audit.Record{
		Level:     audit.LevelInfo,
		EventType: audit.EventFileUpload,
		Action:    "file uploaded",
		Actor:     actorOf(actor),
		Resource:  filename,
		Details:   map[string]any{"size": size, "contentType": contentType},
		Success:   true,
	})
}

// RecordMaliciousFile audits a rejected upload at critical level, which
// raises an alert.
func (e *Engine) RecordMaliciousFile(ctx context.Context, actor Identity, filename, reason string) {
	e.record(ctx, audit.Record{
		Level:     audit.LevelCritical,
		EventType: audit.EventMaliciousFile,
		Action:    "malicious file rejected",
		Actor:     actorOf(actor),
		Resource:  filename,
		Details:   map[string]any{"reason": reason},
		Success:   false,
	})
}

// RecordValidationFailure audits a rejected input. actor may be the zero Identity.
func (e *Engine) RecordValidationFailure(ctx context.Context, actor Identity, field, reason string) {
	e.record(ctx, audit.Record{
		Level:     audit.LevelWarning,
		EventType: audit.EventValidationFailure,
		Action:    "input rejected",
		Actor:     actorOf(actor),
		Details:   map[string]any{"field": field, "reason": reason},
		Success:   false,
	})
}

// RecordSuspiciousActivity audits behavior worth a human look, at critical level.
func (e *Engine) RecordSuspiciousActivity(ctx context.Context, actor Identity, description string, details map[string]any) {
	e.record(ctx, audit.Record{
		Level:     audit.LevelCritical,
		EventType: audit.EventSuspiciousActivity,
		Action:    description,
		Actor:     actorOf(actor),
		Details:   details,
		Success:   false,
	})
}

// QueryAudit returns the audit entries of the last sinceHours hours. Sinks
// without read-back yield an empty slice.
func (e *Engine) QueryAudit(ctx context.Context, sinceHours int) ([]audit.Entry, error) {
	return e.audit.Query(ctx, sinceHours)
}

func (e *Engine) since(start time.Time) time.Duration {
	return e.now().Sub(start)
}
