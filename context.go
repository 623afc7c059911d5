package marketgate

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type routeContextKey struct{}

type route struct {
	method string
	path   string
}

// WithClientIP attaches the caller's IP address to ctx. It is recorded on
// every audit entry written for the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent to ctx for audit entries.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithRoute attaches the request method and path, recorded as audit details
// so that a rejection can be tied to the endpoint that produced it.
func WithRoute(ctx context.Context, method, path string) context.Context {
	return context.WithValue(ctx, routeContextKey{}, route{method: method, path: path})
}

// ClientIPFromContext returns the IP stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ua, _ := ctx.Value(userAgentContextKey{}).(string)
	return ua
}

func routeFromContext(ctx context.Context) (route, bool) {
	if ctx == nil {
		return route{}, false
	}
	r, ok := ctx.Value(routeContextKey{}).(route)
	return r, ok
}
