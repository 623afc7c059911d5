package marketgate

import (
	"context"
	"time"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/jwt"
)

// CheckFreshness rejects credentials issued more than timeout ago with
// ErrSessionTimeout. A non-positive timeout falls back to
// Config.Session.TimeoutMinutes; when that is zero too, or the credential has
// no issued-at claim, the guard does not apply.
func (e *Engine) CheckFreshness(ctx context.Context, claims jwt.Claims, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.config.Session.Timeout()
	}
	if timeout <= 0 || claims.IssuedAt.IsZero() {
		return nil
	}

	age := e.now().Sub(claims.IssuedAt)
	if age <= timeout {
		return nil
	}
	return e.reject(ctx, ErrSessionTimeout, "check session freshness", audit.Actor{UserID: claims.SubjectID, Email: claims.Email}, "", map[string]any{
		"issuedAt":       claims.IssuedAt.UTC().Format(time.RFC3339),
		"ageSeconds":     int64(age / time.Second),
		"timeoutMinutes": int64(timeout / time.Minute),
	})
}
