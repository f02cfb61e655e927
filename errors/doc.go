// Package errors standardizes error classification across the storage
// adapters and the façade.
//
// The taxonomy mirrors how callers are expected to react:
//
//   - not_found: routine absence. Read paths convert this into a nil
//     result; it never escapes the façade as an error.
//   - conflict: duplicate unique key (user email) or an expired queue
//     receipt. Surfaced as a boolean failure or ignorable error.
//   - invalid: unparseable identifiers or configuration. Hard failure on
//     write paths, empty result on read paths.
//   - unavailable: transient backend connectivity failure. Propagated to
//     the caller uncaught; no adapter retries on its own.
//
// Adapters wrap errors with the Wrap* helpers so every error reads as
// "component.method: action failed: <cause>".
package errors
