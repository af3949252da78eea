package audio

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Frame is one batch of normalized mono samples. Frames handed to the
// FrameBuffer are never written again.
type Frame []float32

// Device is an opaque handle to an audio endpoint. A nil *Device is "unset".
type Device struct {
	Name              string
	Index             int
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	InputLatency      time.Duration

	info *portaudio.DeviceInfo
}

func (d *Device) String() string {
	if d == nil {
		return "<unset>"
	}
	return d.Name
}

// Stream is an open blocking input stream. Read fills the buffer the stream
// was opened with.
type Stream interface {
	Start() error
	Read() error
	Abort() error
	Stop() error
	Close() error
}

// StreamOpener opens a mono float32 input stream on device that reads into buf.
type StreamOpener interface {
	OpenInput(device *Device, sampleRate float64, buf []float32) (Stream, error)
}

// ConfigurationError reports a setup problem that must be fixed before
// capture can start.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("audio: invalid %s: %s", e.Field, e.Reason)
}

// DeviceIOError wraps a transient read failure. The capture loop recovers
// from it by publishing a zero frame.
type DeviceIOError struct {
	Device string
	Err    error
}

func (e *DeviceIOError) Error() string {
	return fmt.Sprintf("audio: read from %s: %v", e.Device, e.Err)
}

func (e *DeviceIOError) Unwrap() error { return e.Err }

// ResourceReleaseError reports a failure while stopping or closing a stream.
type ResourceReleaseError struct {
	Op  string
	Err error
}

func (e *ResourceReleaseError) Error() string {
	return fmt.Sprintf("audio: %s stream: %v", e.Op, e.Err)
}

func (e *ResourceReleaseError) Unwrap() error { return e.Err }
