package render

import (
	"context"
	"fmt"
	"time"

	"github.com/petems/phasescope/internal/audio"
	"github.com/petems/phasescope/internal/colorscheme"
	"github.com/petems/phasescope/internal/config"
	"github.com/petems/phasescope/internal/observe"
	"github.com/petems/phasescope/internal/phase"
	"github.com/rs/zerolog"
)

// Source supplies the latest frame pair without blocking.
type Source interface {
	Snapshot() audio.FramePair
}

// Stopper ends capture. The loop calls it exactly once on the way out.
type Stopper interface {
	Stop() error
}

// Loop owns the trail and palette and draws them once per tick.
type Loop struct {
	frames  Source
	canvas  Canvas
	log     zerolog.Logger
	metrics *observe.Metrics

	trail   *phase.Trail
	palette *colorscheme.Palette
	radius  int
	stride  int
	fps     int

	scratch []phase.Point
	lastSeq uint64
	drawn   bool
}

// NewLoop builds a render loop from the visual settings. Unknown scheme
// names fall back to Rainbow.
func NewLoop(cfg config.VisualConfig, frames Source, canvas Canvas, log zerolog.Logger, metrics *observe.Metrics) *Loop {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	fps := cfg.FPS
	if fps < 1 {
		fps = config.Default().Visual.FPS
	}
	return &Loop{
		frames:  frames,
		canvas:  canvas,
		log:     log,
		metrics: metrics,
		trail:   phase.NewTrail(cfg.TrailLength),
		palette: colorscheme.NewPalette(cfg.ColorScheme, cfg.TrailLength, log, metrics),
		radius:  cfg.DotSize,
		stride:  cfg.Stride,
		fps:     fps,
	}
}

// Trail exposes the trail for inspection.
func (l *Loop) Trail() *phase.Trail { return l.trail }

// Run draws at the configured frame rate until ctx is done, the canvas
// reports a quit, or presenting fails. capture is stopped before Run returns
// in every case.
func (l *Loop) Run(ctx context.Context, capture Stopper) (err error) {
	defer func() {
		if stopErr := capture.Stop(); stopErr != nil {
			l.log.Error().Err(stopErr).Msg("Failed to stop capture cleanly")
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	l.log.Info().Int("fps", l.fps).Int("trail", l.trail.Cap()).Str("scheme", l.palette.Scheme().String()).Msg("Render loop started")
	for {
		if l.canvas.PollQuit() {
			l.log.Info().Msg("Visualizer closed")
			return nil
		}
		if err := l.RenderFrame(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			l.log.Info().Msg("Render loop cancelled")
			return nil
		case <-ticker.C:
		}
	}
}

// RenderFrame draws the trail once after appending points from the latest
// frame pair.
func (l *Loop) RenderFrame(ctx context.Context) error {
	start := time.Now()
	w, h := l.canvas.Size()
	l.canvas.Clear()

	pair := l.frames.Snapshot()
	stale := l.drawn && pair.Seq == l.lastSeq
	if stale {
		l.log.Debug().Uint64("seq", pair.Seq).Msg("Redrawing unchanged frame pair")
	}
	l.lastSeq = pair.Seq
	l.drawn = true

	l.scratch = phase.SampleInto(l.scratch[:0], pair, l.stride)
	l.trail.Append(l.scratch...)

	l.palette.SetLength(l.trail.Cap())
	table := l.palette.Table()
	if len(table) > 0 {
		l.trail.Each(func(p phase.Point, age int) {
			x, y := MapPoint(p, w, h)
			l.canvas.FillCircle(x, y, l.radius, table[age%len(table)])
		})
	}

	err := l.canvas.Present()
	l.metrics.RecordRender(ctx, time.Since(start), stale)
	if err != nil {
		return fmt.Errorf("render: present: %w", err)
	}
	return nil
}
