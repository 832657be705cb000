// Package otel provides OpenTelemetry metric exporter bindings for authkit
// counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter per authkit metric.
// A single callback reads [authkit.Engine.MetricsSnapshot] on each collection
// cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
