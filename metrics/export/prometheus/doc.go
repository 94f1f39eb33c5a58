// Package prometheus renders vidya metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [vidya.Client] and exposes an [http.Handler]
// that renders all vidya counters and histograms. Counter names are prefixed
// vidya_*_total; the single histogram is vidya_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate client state.
package prometheus
