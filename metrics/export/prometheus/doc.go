// Package prometheus renders authclient counters in the Prometheus text
// exposition format.
//
// Counter names are authclient_*_total; the one histogram is
// authclient_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in a global registry. Callers mount [Exporter.Handler].
//   - Mutate client state.
package prometheus
