package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/marketgate"
)

// RequestMeta records the client IP, user agent and route of each request
// in its context. Proxy headers are only honored when the engine's
// Transport.TrustProxyHeaders is set.
func RequestMeta(engine *marketgate.Engine) func(http.Handler) http.Handler {
	trustProxy := engine.Config().Transport.TrustProxyHeaders

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := marketgate.WithClientIP(r.Context(), clientIP(r, trustProxy))
			ctx = marketgate.WithUserAgent(ctx, r.UserAgent())
			ctx = marketgate.WithRoute(ctx, r.Method, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// first hop of X-Forwarded-For is the original client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
