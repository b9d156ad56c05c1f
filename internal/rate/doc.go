// Package rate provides the fixed-window per-client counter behind the pipeline's
// rate limiting stage.
//
// # Window semantics
//
// Read the counter at rateLimit:<clientIP>; a value at or above the limit rejects
// without incrementing. Otherwise INCR and EXPIRE run together in one MULTI/EXEC,
// so every admitted request slides the window forward.
//
// # What this package must NOT do
//
//   - Decide which requests are rate limited (method filtering lives in the engine).
//   - Be imported outside the authgate module.
package rate
