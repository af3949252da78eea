// Package observe holds the OpenTelemetry instruments recorded by the capture
// engine, the render loop, and the device catalog.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider]; production code uses [DefaultMetrics], which binds
// to whatever global provider [InitProvider] installed (a no-op provider when
// metrics are disabled).
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/petems/phasescope"

// Metrics holds all instruments. Safe for concurrent use.
type Metrics struct {
	// FramesCaptured counts frames published by the capture loop, including
	// zero frames substituted after a read failure.
	FramesCaptured metric.Int64Counter

	// CaptureErrors counts capture problems. Attribute "kind" is "read"
	// (frame replaced by silence) or "overflow" (frame kept).
	CaptureErrors metric.Int64Counter

	// CaptureCycle is the wall time of one capture cycle, read plus idle.
	CaptureCycle metric.Float64Histogram

	// ActiveCaptures is 1 while a capture loop is running.
	ActiveCaptures metric.Int64UpDownCounter

	// RenderDuration is the time spent rendering one visual frame.
	RenderDuration metric.Float64Histogram

	// StaleFrames counts render ticks that drew a frame pair already drawn
	// on a previous tick.
	StaleFrames metric.Int64Counter

	// PaletteRegenerations counts color tables built (cache misses).
	PaletteRegenerations metric.Int64Counter

	// SkippedDevices counts device entries dropped during enumeration.
	SkippedDevices metric.Int64Counter
}

// frameBuckets cover a 60 Hz render budget and typical 5–100 ms capture cycles.
var frameBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.0167, 0.025, 0.05, 0.1, 0.25,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesCaptured, err = m.Int64Counter("phasescope.capture.frames",
		metric.WithDescription("Frames published by the capture loop."),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("phasescope.capture.errors",
		metric.WithDescription("Capture read problems by kind."),
	); err != nil {
		return nil, err
	}
	if met.CaptureCycle, err = m.Float64Histogram("phasescope.capture.cycle.duration",
		metric.WithDescription("Wall time of one capture cycle."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveCaptures, err = m.Int64UpDownCounter("phasescope.capture.active",
		metric.WithDescription("Running capture loops."),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram("phasescope.render.duration",
		metric.WithDescription("Time to render one visual frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StaleFrames, err = m.Int64Counter("phasescope.render.stale_frames",
		metric.WithDescription("Render ticks that reused an already drawn frame pair."),
	); err != nil {
		return nil, err
	}
	if met.PaletteRegenerations, err = m.Int64Counter("phasescope.palette.regenerations",
		metric.WithDescription("Color tables generated by scheme."),
	); err != nil {
		return nil, err
	}
	if met.SkippedDevices, err = m.Int64Counter("phasescope.catalog.skipped_devices",
		metric.WithDescription("Audio device entries skipped during enumeration."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance bound to the global
// meter provider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame counts one published frame and its cycle duration.
func (m *Metrics) RecordFrame(ctx context.Context, cycle time.Duration) {
	m.FramesCaptured.Add(ctx, 1)
	m.CaptureCycle.Record(ctx, cycle.Seconds())
}

// RecordCaptureError counts a capture problem of the given kind.
func (m *Metrics) RecordCaptureError(ctx context.Context, kind string) {
	m.CaptureErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRender records one render tick; stale marks a reused frame pair.
func (m *Metrics) RecordRender(ctx context.Context, d time.Duration, stale bool) {
	m.RenderDuration.Record(ctx, d.Seconds())
	if stale {
		m.StaleFrames.Add(ctx, 1)
	}
}

// RecordPaletteRegeneration counts a freshly generated color table.
func (m *Metrics) RecordPaletteRegeneration(ctx context.Context, scheme string) {
	m.PaletteRegenerations.Add(ctx, 1, metric.WithAttributes(attribute.String("scheme", scheme)))
}
