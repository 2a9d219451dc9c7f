// Package otel provides OpenTelemetry metric bindings for session counters
// and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each session
// counter and an Int64ObservableGauge per histogram bucket. A single callback
// reads [goSession.Controller.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate controller state.
package otel
