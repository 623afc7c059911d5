// Package middleware adapts marketgate.Engine to net/http.
//
// # Pipeline
//
// A protected route composes, outermost first:
//
//	RequestMeta -> RateLimit -> Authenticate -> RequireRoles ->
//	RequireOwnership / RequireProductOwnership -> RequireFreshSession
//
// RequestMeta puts the client IP, user agent and route into the request
// context so that every audit entry written further down carries them.
// Role checks must precede ownership checks; composing them in this order
// is the caller's job.
//
// # Credential transport
//
// [ExtractCredential] reads the auth cookie first and falls back to an
// "Authorization: Bearer" header. Both transports are first-class.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Make authorization decisions itself; every decision is an Engine call.
//   - Write audit entries; the Engine records each rejection exactly once.
package middleware
