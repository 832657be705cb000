// Package metrics holds lock-free operation counters for the engine.
//
// Counters are fixed-size atomic slots indexed by ID, padded to avoid false
// sharing on hot paths. Snapshot copies the current values; exporters under
// metrics/export render snapshots for Prometheus and OpenTelemetry.
//
// # What this package must NOT do
//
//   - Allocate on the increment path.
//   - Export anything per-user; counters are aggregate only.
package metrics
