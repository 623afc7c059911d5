package internaldefs

import (
	"github.com/MrEthical07/marketgate"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   marketgate.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   marketgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: marketgate.MetricAuthSuccess, Name: "marketgate_auth_success_total", Help: "Requests admitted by authentication."},
	{ID: marketgate.MetricAuthFailure, Name: "marketgate_auth_failure_total", Help: "Requests rejected by authentication."},
	{ID: marketgate.MetricMissingCredential, Name: "marketgate_missing_credential_total", Help: "Requests without a credential."},
	{ID: marketgate.MetricInvalidCredential, Name: "marketgate_invalid_credential_total", Help: "Credentials failing format or signature checks."},
	{ID: marketgate.MetricExpiredCredential, Name: "marketgate_expired_credential_total", Help: "Credentials past their hard expiry."},
	{ID: marketgate.MetricUserNotFound, Name: "marketgate_user_not_found_total", Help: "Credentials whose subject no longer exists."},
	{ID: marketgate.MetricAccountDeactivated, Name: "marketgate_account_deactivated_total", Help: "Requests from deactivated accounts."},
	{ID: marketgate.MetricStoreUnavailable, Name: "marketgate_store_unavailable_total", Help: "Identity or product store failures."},
	{ID: marketgate.MetricInsufficientRole, Name: "marketgate_insufficient_role_total", Help: "Role check rejections."},
	{ID: marketgate.MetricNotOwner, Name: "marketgate_not_owner_total", Help: "Ownership check rejections."},
	{ID: marketgate.MetricSessionTimeout, Name: "marketgate_session_timeout_total", Help: "Session freshness rejections."},
	{ID: marketgate.MetricRateLimitHit, Name: "marketgate_rate_limit_hit_total", Help: "Requests rejected by the rate limiter."},
	{ID: marketgate.MetricRateLimitStoreError, Name: "marketgate_rate_limit_store_error_total", Help: "Rate limit counter store failures."},
	{ID: marketgate.MetricLoginSuccess, Name: "marketgate_login_success_total", Help: "Credentials issued by login or registration."},
	{ID: marketgate.MetricLoginFailure, Name: "marketgate_login_failure_total", Help: "Failed login attempts."},
	{ID: marketgate.MetricRegistration, Name: "marketgate_registration_total", Help: "Accounts created by registration."},
	{ID: marketgate.MetricAccountBanned, Name: "marketgate_account_banned_total", Help: "Accounts deactivated by an admin."},
	{ID: marketgate.MetricAccountUnbanned, Name: "marketgate_account_unbanned_total", Help: "Accounts reactivated by an admin."},
	{ID: marketgate.MetricAuditWriteFailure, Name: "marketgate_audit_write_failure_total", Help: "Audit entries the sink failed to persist."},
	{ID: marketgate.MetricCriticalEvent, Name: "marketgate_critical_event_total", Help: "Critical security events."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: marketgate.MetricAuthenticateLatency, Name: "marketgate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// AuditDroppedName is the counter of audit entries dropped under backpressure.
const (
	AuditDroppedName = "marketgate_audit_dropped_total"
	AuditDroppedHelp = "Audit entries dropped due to dispatcher backpressure."
)

// HistogramUpperBounds are the bucket bounds in seconds, without +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
