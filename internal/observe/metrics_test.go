package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
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

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, 23*time.Millisecond)
	m.RecordFrame(ctx, 24*time.Millisecond)

	rm := collect(t, reader)

	frames := findMetric(rm, "phasescope.capture.frames")
	if frames == nil {
		t.Fatal("phasescope.capture.frames not found")
	}
	if got := sumValue(t, frames); got != 2 {
		t.Errorf("expected 2 frames, got %d", got)
	}

	cycle := findMetric(rm, "phasescope.capture.cycle.duration")
	if cycle == nil {
		t.Fatal("phasescope.capture.cycle.duration not found")
	}
	hist, ok := cycle.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", cycle.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Errorf("expected one data point with count 2, got %+v", hist.DataPoints)
	}
}

func TestRecordCaptureErrorByKind(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCaptureError(ctx, "read")
	m.RecordCaptureError(ctx, "read")
	m.RecordCaptureError(ctx, "overflow")

	errs := findMetric(collect(t, reader), "phasescope.capture.errors")
	if errs == nil {
		t.Fatal("phasescope.capture.errors not found")
	}
	sum := errs.Data.(metricdata.Sum[int64])
	byKind := map[string]int64{}
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value("kind")
		byKind[kind.AsString()] = dp.Value
	}
	if byKind["read"] != 2 || byKind["overflow"] != 1 {
		t.Errorf("unexpected counts by kind: %v", byKind)
	}
}

func TestRecordRenderCountsStaleOnly(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRender(ctx, time.Millisecond, false)
	m.RecordRender(ctx, time.Millisecond, true)
	m.RecordRender(ctx, time.Millisecond, true)

	rm := collect(t, reader)
	stale := findMetric(rm, "phasescope.render.stale_frames")
	if stale == nil {
		t.Fatal("phasescope.render.stale_frames not found")
	}
	if got := sumValue(t, stale); got != 2 {
		t.Errorf("expected 2 stale frames, got %d", got)
	}
	if findMetric(rm, "phasescope.render.duration") == nil {
		t.Error("phasescope.render.duration not found")
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("expected DefaultMetrics to return the same instance")
	}
}
