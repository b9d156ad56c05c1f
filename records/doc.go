// Package records provides [authgate.RecordStore] implementations: an
// in-memory store for tests and demos, and a SQLite store on modernc.org/sqlite.
// Both also implement [authgate.UserRoleResolver].
//
// [LoadSeed] reads a YAML document of roles, users and API keys that can be
// applied to either store.
package records
