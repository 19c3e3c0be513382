package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsRegistersAllInstruments(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.RecognitionLatency.Record(context.Background(), 0.2)
	m.FramesSent.Add(context.Background(), 1)
	m.ActiveSessions.Add(context.Background(), 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	for _, name := range []string{
		"sessioncore.recognition.latency",
		"sessioncore.frames.sent",
		"sessioncore.sessions.active",
	} {
		if findMetric(&rm, name) == nil {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestRecordError(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.RecordError(context.Background(), "invalid_frame")
	m.RecordError(context.Background(), "invalid_frame")
	m.RecordError(context.Background(), "upstream_timeout")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	met := findMetric(&rm, "sessioncore.errors")
	if met == nil {
		t.Fatal("sessioncore.errors metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", met.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total errors = %d, want 3", total)
	}
}

func TestRecordRenewalOutcome(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.RecordRenewalOutcome(context.Background(), true, 1.2)
	m.RecordRenewalOutcome(context.Background(), false, 0.8)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	completed := findMetric(&rm, "sessioncore.renewals.completed")
	failed := findMetric(&rm, "sessioncore.renewals.failed")
	if completed == nil || failed == nil {
		t.Fatal("expected both renewals.completed and renewals.failed metrics")
	}
}
