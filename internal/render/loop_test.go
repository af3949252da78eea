package render

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/petems/phasescope/internal/audio"
	"github.com/petems/phasescope/internal/colorscheme"
	"github.com/petems/phasescope/internal/config"
	"github.com/petems/phasescope/internal/observe/observetest"
	"github.com/rs/zerolog"
)

type dot struct {
	x, y, r int
	c       color.RGBA
}

type fakeCanvas struct {
	mu         sync.Mutex
	w, h       int
	dots       []dot
	clears     int
	presents   int
	presentErr error
	quitAfter  int // PollQuit returns true once presents reaches this; 0 never
}

func (c *fakeCanvas) Size() (int, int) { return c.w, c.h }

func (c *fakeCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	c.dots = nil
}

func (c *fakeCanvas) FillCircle(x, y, r int, col color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dots = append(c.dots, dot{x, y, r, col})
}

func (c *fakeCanvas) Present() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presents++
	return c.presentErr
}

func (c *fakeCanvas) PollQuit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quitAfter > 0 && c.presents >= c.quitAfter
}

func (c *fakeCanvas) Close() error { return nil }

type fakeStopper struct {
	mu    sync.Mutex
	stops int
	err   error
}

func (s *fakeStopper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.err
}

func (s *fakeStopper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func visual(trail int, scheme string) config.VisualConfig {
	v := config.Default().Visual
	v.TrailLength = trail
	v.ColorScheme = scheme
	v.Stride = 1
	v.DotSize = 2
	v.FPS = 200
	return v
}

func framePair(seq uint64, prev, curr audio.Frame) audio.FramePair {
	return audio.FramePair{Previous: prev, Current: curr, Seq: seq}
}

type staticSource struct {
	mu   sync.Mutex
	pair audio.FramePair
}

func (s *staticSource) Snapshot() audio.FramePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

func (s *staticSource) set(p audio.FramePair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = p
}

func TestRenderFrameDrawsTrailOldestFirst(t *testing.T) {
	metrics, _ := observetest.NewMetrics(t)
	canvas := &fakeCanvas{w: 800, h: 800}
	src := &staticSource{pair: framePair(1, audio.Frame{-1, 0, 1}, audio.Frame{1, 0.5, 0})}
	loop := NewLoop(visual(10, "Fire"), src, canvas, zerolog.Nop(), metrics)

	if err := loop.RenderFrame(context.Background()); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	want := []struct{ x, y int }{{0, 799}, {400, 600}, {799, 400}}
	if len(canvas.dots) != len(want) {
		t.Fatalf("expected %d dots, got %d", len(want), len(canvas.dots))
	}
	table := colorscheme.Generate(colorscheme.Fire, 10)
	for i, d := range canvas.dots {
		if d.x != want[i].x || d.y != want[i].y {
			t.Errorf("dot %d at (%d, %d), want (%d, %d)", i, d.x, d.y, want[i].x, want[i].y)
		}
		if d.r != 2 {
			t.Errorf("dot %d radius %d, want 2", i, d.r)
		}
		age := len(want) - 1 - i
		if d.c != table[age] {
			t.Errorf("dot %d (age %d) color %v, want %v", i, age, d.c, table[age])
		}
	}
	if canvas.clears != 1 || canvas.presents != 1 {
		t.Errorf("expected one clear and one present, got %d and %d", canvas.clears, canvas.presents)
	}
}

func TestRenderFrameTrailBounded(t *testing.T) {
	metrics, _ := observetest.NewMetrics(t)
	canvas := &fakeCanvas{w: 100, h: 100}
	frame := make(audio.Frame, 64)
	src := &staticSource{pair: audio.FramePair{Previous: frame, Current: frame, Seq: 1}}
	loop := NewLoop(visual(10, "Rainbow"), src, canvas, zerolog.Nop(), metrics)

	for i := 0; i < 3; i++ {
		if err := loop.RenderFrame(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := loop.Trail().Len(); got != 10 {
		t.Errorf("expected trail of 10, got %d", got)
	}
	if len(canvas.dots) != 10 {
		t.Errorf("expected 10 dots, got %d", len(canvas.dots))
	}
}

func TestRenderFrameCountsStaleFrames(t *testing.T) {
	metrics, reader := observetest.NewMetrics(t)
	canvas := &fakeCanvas{w: 100, h: 100}
	src := &staticSource{pair: framePair(1, audio.Frame{0}, audio.Frame{0})}
	loop := NewLoop(visual(10, "Ocean"), src, canvas, zerolog.Nop(), metrics)
	ctx := context.Background()

	loop.RenderFrame(ctx) // first draw is never stale
	loop.RenderFrame(ctx)
	src.set(framePair(2, audio.Frame{0}, audio.Frame{0}))
	loop.RenderFrame(ctx)
	loop.RenderFrame(ctx)

	if got := reader.Sum("phasescope.render.stale_frames"); got != 2 {
		t.Errorf("expected 2 stale frames, got %d", got)
	}
	if got := loop.Trail().Len(); got != 4 {
		t.Errorf("expected repeated frames to keep appending, trail len %d", got)
	}
}

func TestRenderFramePresentError(t *testing.T) {
	metrics, _ := observetest.NewMetrics(t)
	presentErr := errors.New("device lost")
	canvas := &fakeCanvas{w: 100, h: 100, presentErr: presentErr}
	loop := NewLoop(visual(10, "Rainbow"), &staticSource{}, canvas, zerolog.Nop(), metrics)

	if err := loop.RenderFrame(context.Background()); !errors.Is(err, presentErr) {
		t.Errorf("expected present error, got %v", err)
	}
}

func TestRunStopsCaptureOnQuit(t *testing.T) {
	metrics, _ := observetest.NewMetrics(t)
	canvas := &fakeCanvas{w: 100, h: 100, quitAfter: 3}
	capture := &fakeStopper{}
	loop := NewLoop(visual(10, "Rainbow"), &staticSource{}, canvas, zerolog.Nop(), metrics)

	if err := loop.Run(context.Background(), capture); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if canvas.presents != 3 {
		t.Errorf("expected 3 frames before quitting, got %d", canvas.presents)
	}
	if capture.count() != 1 {
		t.Errorf("expected capture stopped once, got %d", capture.count())
	}
}

func TestRunStopsCaptureOnCancel(t *testing.T) {
	metrics, _ := observetest.NewMetrics(t)
	canvas := &fakeCanvas{w: 100, h: 100}
	capture := &fakeStopper{err: errors.New("close failed")}
	loop := NewLoop(visual(10, "Rainbow"), &staticSource{}, canvas, zerolog.Nop(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- loop.Run(ctx, capture) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if capture.count() != 1 {
		t.Errorf("expected capture stopped once, got %d", capture.count())
	}
}

func TestRunStopsCaptureOnPresentError(t *testing.T) {
	metrics, _ := observetest.NewMetrics(t)
	canvas := &fakeCanvas{w: 100, h: 100, presentErr: errors.New("lost context")}
	capture := &fakeStopper{}
	loop := NewLoop(visual(10, "Rainbow"), &staticSource{}, canvas, zerolog.Nop(), metrics)

	if err := loop.Run(context.Background(), capture); err == nil {
		t.Error("expected Run to return the present error")
	}
	if capture.count() != 1 {
		t.Errorf("expected capture stopped once, got %d", capture.count())
	}
}
