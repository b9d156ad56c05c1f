// Package flows contains pure-function orchestrators for every pipeline stage.
//
// Each flow function (RunAuthenticate, RunRefresh, RunCSRF, RunRolesGate,
// RunMaintenance, RunPluginKey) accepts a typed dependency struct and returns a
// classified result without side effects beyond those dependencies. The identity
// resolved by one stage is passed to the next explicitly; no flow mutates a
// shared request object.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, JWT manager, record
// store, and role cache. They do NOT own any of these resources, and they do
// NOT log, count metrics, or map failures to HTTP statuses; the Engine does.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authgate (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
