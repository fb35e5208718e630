// Package otel exposes authclient counters through an OpenTelemetry Meter.
//
// [New] registers an Int64ObservableCounter per counter, an Int64ObservableGauge
// per refresh latency bucket, and a refresh in-flight gauge. One callback reads
// [authclient.Client.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
