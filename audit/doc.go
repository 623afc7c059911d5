// Package audit records security-relevant decisions as an append-only,
// hash-chained trail.
//
// # Components
//
//   - [Entry]: one immutable record. Entries are linked by SHA-256 hashes
//     (prevHash -> hash) so that edits, deletions and reordering are
//     detectable with [VerifyChain].
//   - [Log]: the explicitly opened component the rest of the service writes
//     through. It stamps ids and timestamps, extends the chain, dispatches to
//     the sink and raises alerts for critical entries.
//   - [Sink]: where entries go. [FileSink] appends JSON lines, [ConsoleSink]
//     writes through slog, [MemorySink] backs tests, and package gormsink
//     stores entries in SQL.
//   - [Alerter]: the side effect triggered by critical entries.
//
// # Failure model
//
// Writing is best-effort. A failing sink never fails the caller: the error
// goes to the fallback logger and the OnWriteError hook, and the request
// continues.
//
// # What this package must NOT do
//
//   - Edit or delete entries that were handed to a sink.
//   - Decide which sink a deployment uses; that is configuration.
//   - Import marketgate or middleware.
package audit
