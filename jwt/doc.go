// Package jwt signs and verifies marketgate session credentials.
//
// A credential is an HS256 JWT carrying the subject id, email, role and the
// issued-at / expiry instants. Verification is deterministic and performs
// no I/O.
//
// # Time semantics
//
// Expiry is compared against wall-clock time with no leeway. Clock skew
// between the issuing and verifying host is not compensated; deployments
// with more than one host must keep their clocks synchronized.
//
// # What this package must NOT do
//
//   - Look up identities or consult account state.
//   - Accept any signing algorithm other than HS256.
package jwt
