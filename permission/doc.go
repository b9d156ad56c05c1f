// Package permission holds the authorization data model shared by the pipeline:
// roles, API-key records, the capability-to-route-prefix table, and a short-lived
// role cache in front of the store of record.
//
// # Permission forms
//
// Role permissions are plain strings compared by exact match. API-key
// permissions are abstract capability names ("trade", "withdraw", ...) that
// own route prefixes through a [CapabilityMap]. The two are never mixed.
//
// # What this package must NOT do
//
//   - Import authgate, jwt, or session (no upward imports).
//   - Perform I/O other than through a caller-supplied [RoleLookup].
//   - Cache API-key records; they are re-read from the store on every request.
package permission
