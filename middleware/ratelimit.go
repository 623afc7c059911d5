package middleware

import (
	"net/http"
	"time"

	"github.com/MrEthical07/marketgate"
)

// RateLimitOption customizes RateLimit.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	scope string
	key   func(r *http.Request) string
}

// WithScope namespaces the counters so that two limiters on the same client
// do not share a window.
func WithScope(scope string) RateLimitOption {
	return func(c *rateLimitConfig) { c.scope = scope }
}

// WithKeyFunc replaces the client IP as the counter key.
func WithKeyFunc(fn func(r *http.Request) string) RateLimitOption {
	return func(c *rateLimitConfig) { c.key = fn }
}

// RateLimit admits at most max requests per client per window. The client
// is identified by the IP recorded by RequestMeta.
func RateLimit(engine *marketgate.Engine, max int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	cfg := rateLimitConfig{scope: "api"}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := engine.Admit(r.Context(), cfg.scope+":"+clientKey(r, cfg.key), max, window); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request, keyFn func(*http.Request) string) string {
	if keyFn != nil {
		if k := keyFn(r); k != "" {
			return k
		}
	}
	if ip := marketgate.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return clientIP(r, false)
}
