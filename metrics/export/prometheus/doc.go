// Package prometheus renders authkit metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts an [authkit.Engine] and exposes an
// [net/http.Handler] that renders all authkit counters. Counter names are
// prefixed authkit_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
