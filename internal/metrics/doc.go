// Package metrics provides lock-free counters and latency histograms for
// authgate.
//
// Counters live in cache-line-padded uint64 slots updated with sync/atomic.
// Histograms use 8 fixed buckets (<=5ms ... +Inf) plus a running sum. The
// write path does not allocate.
//
// Export (Prometheus text, OpenTelemetry) lives in metrics/export and reads
// Snapshot values. This package performs no I/O and keeps no global registry.
package metrics
