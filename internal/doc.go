// Package internal contains helper utilities that are intentionally private to authgate,
// including secure random generation and client address attribution.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every pipeline stage
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window per-client rate limit counter
//   - security: configuration risk report
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
