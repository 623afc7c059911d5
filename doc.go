// Package marketgate is the request authentication and authorization gate of
// the marketplace service.
//
// An [Engine] ties together the credential codec (package jwt), the identity
// store, the access policy rules, the session timeout guard, the fixed-window
// rate limiter and the security audit log (package audit). HTTP adapters
// live in package middleware.
//
// # Request pipeline
//
//	transport -> verify credential -> resolve identity -> role -> ownership -> [freshness] -> handler
//
// Routes that opt in run the rate limiter ahead of everything else. Every
// rejection writes exactly one audit entry before the error is returned.
//
// # Construction
//
//	engine, err := marketgate.New().
//		WithConfig(cfg).
//		WithIdentityProvider(store).
//		WithProductOwnerLookup(store).
//		WithAuditSink(sink).
//		Build()
//	defer engine.Close(context.Background())
//
// # Known limitations
//
//   - Credential expiry uses wall-clock time with no skew compensation.
//   - A credential without an issued-at claim is not subject to the
//     session timeout guard.
//   - The fixed window admits up to twice the limit across a window boundary.
package marketgate
