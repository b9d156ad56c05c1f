// Package prometheus provides a Prometheus collector for authgate metrics.
//
// [NewCollector] wraps an [authgate.Engine]; register it on any
// prometheus.Registerer or serve it alone through [Collector.Handler].
// Counter names are prefixed authgate_*_total; the single histogram is
// authgate_evaluate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
