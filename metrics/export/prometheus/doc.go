// Package prometheus exposes session counters to Prometheus.
//
// [PrometheusExporter] renders every counter and the login latency histogram
// in text exposition format behind an [http.Handler]. [Collector] serves the
// same values through a client_golang registry. Counter names are prefixed
// gosession_*_total; the single histogram is gosession_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers pass a
//     registry or mount the Handler.
//   - Mutate controller state.
package prometheus
