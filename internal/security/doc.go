// Package security derives a posture report from the engine configuration.
//
// The report is a flat value: booleans for each protection and a list of
// warnings for settings that weaken the pipeline. It never reads secrets.
//
// # What this package must NOT do
//
//   - Import authgate (the root package maps its Config into ReportInput).
//   - Perform I/O.
package security
