package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/marketgate"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by Authenticate or
// OptionalAuth.
func AuthResultFromContext(ctx context.Context) (*marketgate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*marketgate.AuthResult)
	return res, ok && res != nil
}

func withAuthResult(ctx context.Context, res *marketgate.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Authenticate rejects requests without a valid credential for an active
// identity. On success the AuthResult is stored in the request context.
func Authenticate(engine *marketgate.Engine) func(http.Handler) http.Handler {
	cookieName := engine.Config().Transport.CookieName

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := ExtractCredential(r, cookieName)

			res, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAuthResult(r.Context(), res)))
		})
	}
}

// OptionalAuth attaches an AuthResult when the request carries a valid
// credential and passes the request through unchanged otherwise. A
// request without any credential is not audited; an invalid one is.
func OptionalAuth(engine *marketgate.Engine) func(http.Handler) http.Handler {
	cookieName := engine.Config().Transport.CookieName

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractCredential(r, cookieName)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAuthResult(r.Context(), res)))
		})
	}
}
