// Package authgate provides the request authentication and authorization pipeline
// in front of an HTTP API: bearer-token or API-key authentication, transparent
// session refresh backed by Redis, CSRF defense for cookie clients, per-client
// rate limiting, and role/capability gates with demo-mode and maintenance lockouts.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config], the
// [Error] taxonomy and value types. Flow decisions live in internal/flows and
// return failure kinds; this package maps them to errors, metrics, audit events,
// log entries and trace spans. Transport concerns (cookies, headers, JSON error
// bodies) live in the middleware package.
//
// # What this package must NOT do
//
//   - Render HTTP responses or read *http.Request values.
//   - Return dependency errors unclassified; every stage error is an [*Error].
//   - Retry store operations. Every failure path denies the request.
//   - Import any sub-package that re-imports authgate (no import cycles).
package authgate
