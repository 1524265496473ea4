// Package otel publishes authgate metrics through the OpenTelemetry metric
// API.
//
// [New] registers one Int64ObservableCounter per counter and a set of
// observable gauges per latency histogram (cumulative buckets, count, sum).
// A single callback reads the snapshot on each collection cycle. Callers
// own the MeterProvider.
package otel
