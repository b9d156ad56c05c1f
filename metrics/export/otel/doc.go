// Package otel provides OpenTelemetry metric exporter bindings for authgate
// counters and the Evaluate latency histogram.
//
// [NewExporter] registers an Int64ObservableCounter per authgate counter and
// an Int64ObservableGauge per histogram bucket. A single callback reads
// [authgate.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
