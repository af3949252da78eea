// Package observetest builds Metrics over an in-memory reader for tests in
// other packages.
package observetest

import (
	"context"
	"testing"

	"github.com/petems/phasescope/internal/observe"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Reader collects what the Metrics returned by NewMetrics recorded.
type Reader struct {
	t      testing.TB
	reader *sdkmetric.ManualReader
}

// NewMetrics returns Metrics backed by a ManualReader. The provider is shut
// down when the test ends.
func NewMetrics(t testing.TB) (*observe.Metrics, *Reader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, &Reader{t: t, reader: reader}
}

// Sum returns the total of an int64 counter across all attribute sets, or 0
// if nothing was recorded under name.
func (r *Reader) Sum(name string) int64 {
	r.t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(context.Background(), &rm); err != nil {
		r.t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				r.t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}
