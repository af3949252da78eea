// Package render draws the phase-space trail onto a Canvas at a fixed frame
// rate.
package render

import (
	"image/color"
	"math"

	"github.com/petems/phasescope/internal/phase"
)

// Canvas is a drawing surface. All methods are called from the render
// goroutine.
type Canvas interface {
	Size() (w, h int)
	Clear()
	FillCircle(x, y, r int, c color.RGBA)
	Present() error
	// PollQuit drains pending input and reports whether the user asked to
	// close the visualizer.
	PollQuit() bool
	Close() error
}

// span is one horizontal row of a filled disc: the row at dy from the centre
// covers x-dx through x+dx.
type span struct {
	dy, dx int
}

// circleSpans returns the rows of a filled disc of radius r, top to bottom.
// A radius below 1 is a single point.
func circleSpans(r int) []span {
	if r < 1 {
		return []span{{0, 0}}
	}
	spans := make([]span, 0, 2*r+1)
	for dy := -r; dy <= r; dy++ {
		dx := int(math.Sqrt(float64(r*r - dy*dy)))
		spans = append(spans, span{dy: dy, dx: dx})
	}
	return spans
}

// MapPoint maps p to pixel coordinates on a w×h surface, with -1..1 on each
// axis spanning the surface, clamped to the drawable area.
func MapPoint(p phase.Point, w, h int) (x, y int) {
	x = clamp(axis(p.Prev, w), 0, w-1)
	y = clamp(axis(p.Curr, h), 0, h-1)
	return x, y
}

func axis(v float32, size int) int {
	f := float64(v)
	if math.IsNaN(f) {
		f = 0
	}
	half := float64(size) / 2
	pos := half + f*half
	// Keep the conversion in range; clamp finishes the job.
	pos = math.Max(-1, math.Min(pos, float64(size)))
	return int(pos)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
