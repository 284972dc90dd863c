// Package prometheus renders scoped-client metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [scoped.Client] and exposes an
// [net/http.Handler]. Counter names are prefixed scoped_*_total; the single
// histogram is scoped_issue_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate client state.
package prometheus
