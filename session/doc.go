// Package session provides the Redis-backed key-value client used by the request
// pipeline: session records for the refresh and CSRF flows, and plain counters
// for rate limiting.
//
// # Session records
//
// A [Record] is a JSON blob holding the current refresh token, a snapshot of the
// user it was minted for, and the CSRF token for the session. Two distinct keys
// address records:
//
//   - [RefreshKey] ("sessionId:<sessionId>") is read by the refresh flow.
//   - [CSRFKey] ("sessionId:<userId>:<sessionId>") is read by the CSRF guard.
//
// They are written by the login flow as separate records and must never be
// assumed to alias each other.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Record] model. It does
// NOT interpret JWT tokens, evaluate permissions, or decide request outcomes.
//
// # What this package must NOT do
//
//   - Import authgate, jwt, or permission (no upward imports).
//   - Retry failed commands; every failure is surfaced to the caller immediately.
package session
