// Package rate implements the fixed-window request limiter behind
// marketgate's per-client throttling.
//
// # Window semantics
//
// A window opens on the first hit for a key and lasts exactly the configured
// duration. Hits inside the window increment the counter; the first hit at or
// after the reset instant replaces the counter with a fresh one (count 1).
// A client can therefore land up to 2*max requests across a window boundary.
// This burst tolerance is accepted in exchange for O(1) state per key.
//
// # Stores
//
//   - [MemoryStore]: mutex-guarded map for single-instance deployments.
//   - [RedisStore]: INCR + PEXPIRE on first hit, shared by every instance.
//
// # What this package must NOT do
//
//   - Decide what a client identifier is (the caller supplies it).
//   - Write audit entries or HTTP responses.
//   - Be imported outside the marketgate module.
package rate
