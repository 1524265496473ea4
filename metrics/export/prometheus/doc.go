// Package prometheus serves authgate metrics in the Prometheus text
// exposition format.
//
// Counters are named authgate_*_total. The verify and provider login
// latency histograms are authgate_*_latency_seconds with cumulative le
// buckets, _sum and _count. Callers mount [Exporter.Handler]; nothing is
// registered globally.
package prometheus
