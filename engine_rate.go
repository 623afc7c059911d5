package marketgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/internal/rate"
)

// Admit counts one request for clientID against max requests per window.
// Over the limit it returns a *RateLimitError carrying the retry delay.
// When the limiter is disabled every request is admitted.
func (e *Engine) Admit(ctx context.Context, clientID string, max int, window time.Duration) error {
	if !e.config.RateLimit.Enabled {
		return nil
	}

	d, err := e.limiter.Admit(ctx, clientID, max, window)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		rle := &RateLimitError{Limit: d.Limit, ResetAt: d.ResetAt, RetryAfter: d.RetryAfter}
		_ = e.reject(ctx, rle, "rate limit", audit.Actor{}, "", map[string]any{
			"clientId":      clientID,
			"limit":         d.Limit,
			"count":         d.Count,
			"windowSeconds": int64(window / time.Second),
			"retryAfter":    rle.RetryAfterSeconds(),
		})
		return rle
	case errors.Is(err, rate.ErrInvalidRule):
		return fmt.Errorf("%w: %v", ErrEngineMisconfigured, err)
	default:
		e.metricInc(MetricRateLimitStoreError)
		e.logger.WarnContext(ctx, "rate limit store failure", "client_id", clientID, "error", err)
		if e.config.RateLimit.FailClosed {
			return e.rejectAs(ctx, audit.EventRateLimitExceeded, fmt.Errorf("%w: %v", ErrStoreUnavailable, err), "rate limit", audit.Actor{}, "", map[string]any{
				"clientId": clientID,
			})
		}
		return nil
	}
}
