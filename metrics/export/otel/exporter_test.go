package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/localizekit/authgate"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authgate.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authgate.MetricsSnapshot{
		Counters:      make(map[authgate.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms:    make(map[authgate.MetricID][]uint64, len(f.snapshot.Histograms)),
		HistogramSums: make(map[authgate.MetricID]time.Duration, len(f.snapshot.HistogramSums)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	for k, v := range f.snapshot.HistogramSums {
		out.HistogramSums[k] = v
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestExporterCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("authgate-test")

	src := &fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{authgate.MetricGateRejected: 3},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricVerifyLatency: {1, 1, 0, 0, 0, 0, 0, 1},
			},
			HistogramSums: map[authgate.MetricID]time.Duration{authgate.MetricVerifyLatency: 1500 * time.Millisecond},
		},
		dropped: 2,
	}
	exp, err := New(meter, src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	got := collect(t, reader)

	rejected, ok := got["authgate_gate_rejected_total"].(metricdata.Sum[int64])
	if !ok || len(rejected.DataPoints) != 1 || rejected.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected gate counter %#v", got["authgate_gate_rejected_total"])
	}
	count, ok := got["authgate_verify_latency_seconds_count"].(metricdata.Gauge[int64])
	if !ok || count.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected histogram count %#v", got["authgate_verify_latency_seconds_count"])
	}
	sum, ok := got["authgate_verify_latency_seconds_sum"].(metricdata.Gauge[float64])
	if !ok || sum.DataPoints[0].Value != 1.5 {
		t.Fatalf("unexpected histogram sum %#v", got["authgate_verify_latency_seconds_sum"])
	}
	dropped, ok := got["authgate_audit_dropped_total"].(metricdata.Sum[int64])
	if !ok || dropped.DataPoints[0].Value != 2 {
		t.Fatalf("unexpected audit dropped %#v", got["authgate_audit_dropped_total"])
	}
}

func TestExporterRejectsNil(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("authgate-test")
	if _, err := New(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := New(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterReadsEngine(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("authgate-test")

	m := authgate.NewMetrics(authgate.MetricsConfig{Enabled: true})
	m.Inc(authgate.MetricIssueSuccess)
	exp, err := New(meter, metricsOnly{m})
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer exp.Close()

	issued, ok := collect(t, reader)["authgate_issue_success_total"].(metricdata.Sum[int64])
	if !ok || issued.DataPoints[0].Value != 1 {
		t.Fatalf("unexpected issue counter %#v", issued)
	}
}

type metricsOnly struct{ m *authgate.Metrics }

func (s metricsOnly) MetricsSnapshot() authgate.MetricsSnapshot { return s.m.Snapshot() }
func (metricsOnly) AuditDropped() uint64                        { return 0 }

func TestExporterConcurrentCollect(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("authgate-test")
	src := &fakeSource{snapshot: authgate.MetricsSnapshot{Counters: map[authgate.MetricID]uint64{}}}
	exp, err := New(meter, src)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[authgate.MetricVerifySuccess] = v
			src.mu.Unlock()
			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
