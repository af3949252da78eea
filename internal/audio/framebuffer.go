package audio

import (
	"sync"
	"sync/atomic"
)

// FramePair is a consistent view of the two most recent frames.
// Previous is the frame published immediately before Current; Seq counts
// publications and is 0 until the first one.
type FramePair struct {
	Previous Frame
	Current  Frame
	Seq      uint64
}

// FrameBuffer hands frames from the capture loop to the render loop.
// Each Publish swaps in a new immutable pair, so Snapshot never observes a
// half-written frame and never blocks.
type FrameBuffer struct {
	mu   sync.Mutex // serializes publishers
	pair atomic.Pointer[FramePair]
}

// NewFrameBuffer returns a buffer holding two zero frames of size samples.
func NewFrameBuffer(size int) *FrameBuffer {
	fb := &FrameBuffer{}
	fb.pair.Store(&FramePair{
		Previous: make(Frame, size),
		Current:  make(Frame, size),
	})
	return fb
}

// Publish makes frame the current frame and the old current the previous.
// The caller must not modify frame afterwards.
func (fb *FrameBuffer) Publish(frame Frame) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	old := fb.pair.Load()
	fb.pair.Store(&FramePair{
		Previous: old.Current,
		Current:  frame,
		Seq:      old.Seq + 1,
	})
}

// Snapshot returns the latest pair. The frames are shared and read-only.
func (fb *FrameBuffer) Snapshot() FramePair {
	return *fb.pair.Load()
}
