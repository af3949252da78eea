// Package phase turns pairs of consecutive audio frames into phase-space
// points and keeps the most recent of them in a fixed-capacity trail.
package phase

import "github.com/petems/phasescope/internal/audio"

// Point plots a sample of the previous frame (x) against the sample at the
// same index in the current frame (y). Both are nominally in [-1, 1].
type Point struct {
	Prev float32
	Curr float32
}

// Sample pairs pair.Previous[i] with pair.Current[i] for i = 0, stride,
// 2*stride, ... below the shorter frame's length.
func Sample(pair audio.FramePair, stride int) []Point {
	return SampleInto(nil, pair, stride)
}

// SampleInto is Sample appending to dst.
func SampleInto(dst []Point, pair audio.FramePair, stride int) []Point {
	if stride < 1 {
		stride = 1
	}
	n := min(len(pair.Previous), len(pair.Current))
	for i := 0; i < n; i += stride {
		dst = append(dst, Point{Prev: pair.Previous[i], Curr: pair.Current[i]})
	}
	return dst
}
