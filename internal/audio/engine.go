package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petems/phasescope/internal/observe"
	"github.com/rs/zerolog"
)

// ErrInputOverflowed is returned by Stream.Read when the device produced
// more data than was read. The buffer is still valid.
var ErrInputOverflowed = errors.New("audio: input overflowed")

// State is the capture engine lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConfigured
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithJoinTimeout bounds how long Stop waits for the capture loop before
// aborting the stream, and again after aborting. The default is two capture
// periods plus 200ms.
func WithJoinTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.joinTimeout = d
		}
	}
}

// Engine captures one mono input stream into a FrameBuffer on a background
// goroutine. It moves Idle → Configured → Running → Closed and cannot be
// restarted once closed.
type Engine struct {
	opener      StreamOpener
	frames      *FrameBuffer
	log         zerolog.Logger
	metrics     *observe.Metrics
	joinTimeout time.Duration

	mu         sync.Mutex
	state      State
	device     *Device
	sampleRate int
	frameSize  int
	buf        []float32
	stream     Stream
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewEngine returns an idle engine publishing into frames.
func NewEngine(opener StreamOpener, frames *FrameBuffer, log zerolog.Logger, metrics *observe.Metrics, opts ...EngineOption) *Engine {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	e := &Engine{
		opener:  opener,
		frames:  frames,
		log:     log,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup opens the input stream. It returns a *ConfigurationError when the
// device is unset, the rate or size is not positive, or the engine has
// already been set up.
func (e *Engine) Setup(device *Device, sampleRate, frameSize int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return &ConfigurationError{Field: "state", Reason: fmt.Sprintf("setup called on %s engine", e.state)}
	}
	if device == nil {
		return &ConfigurationError{Field: "device", Reason: "input device not set"}
	}
	if sampleRate <= 0 {
		return &ConfigurationError{Field: "sample rate", Reason: fmt.Sprintf("%d is not positive", sampleRate)}
	}
	if frameSize <= 0 {
		return &ConfigurationError{Field: "frame size", Reason: fmt.Sprintf("%d is not positive", frameSize)}
	}

	buf := make([]float32, frameSize)
	stream, err := e.opener.OpenInput(device, float64(sampleRate), buf)
	if err != nil {
		return fmt.Errorf("audio: open %s: %w", device, err)
	}

	e.device = device
	e.sampleRate = sampleRate
	e.frameSize = frameSize
	e.buf = buf
	e.stream = stream
	e.state = StateConfigured

	e.log.Info().
		Str("device", device.Name).
		Int("sample_rate", sampleRate).
		Int("frame_size", frameSize).
		Msg("Audio stream opened")
	return nil
}

// Start begins capturing. The loop runs until Stop or until ctx is done.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateConfigured {
		return &ConfigurationError{Field: "state", Reason: fmt.Sprintf("start called on %s engine", e.state)}
	}

	if err := e.stream.Start(); err != nil {
		return fmt.Errorf("audio: start %s: %w", e.device, err)
	}

	period := e.period()
	if e.joinTimeout == 0 {
		e.joinTimeout = 2*period + 200*time.Millisecond
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = StateRunning
	e.metrics.ActiveCaptures.Add(loopCtx, 1)

	go e.captureLoop(loopCtx, e.stream, e.buf, period, e.done)

	e.log.Info().Dur("period", period).Msg("Capture started")
	return nil
}

// Period is the capture cadence, frameSize/sampleRate. Zero before Setup.
func (e *Engine) Period() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.period()
}

func (e *Engine) period() time.Duration {
	if e.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) * float64(e.frameSize) / float64(e.sampleRate))
}

// captureLoop reads one frame per cycle and idles out the rest of the
// cycle. It only touches the stream and buf it was given.
func (e *Engine) captureLoop(ctx context.Context, stream Stream, buf []float32, period time.Duration, done chan struct{}) {
	defer close(done)
	defer e.metrics.ActiveCaptures.Add(context.Background(), -1)

	timer := time.NewTimer(period)
	timer.Stop()
	defer timer.Stop()

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		frame, err := e.readFrame(ctx, stream, buf)
		if ctx.Err() != nil {
			return
		}

		switch {
		case err != nil:
			failures++
			if failures == 1 {
				e.log.Warn().Err(err).Msg("Audio read failed, substituting silence")
			}
		case failures > 0:
			e.log.Info().Int("failed_reads", failures).Msg("Audio read recovered")
			failures = 0
		}

		e.frames.Publish(frame)

		if idle := period - time.Since(start); idle > 0 {
			timer.Reset(idle)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		e.metrics.RecordFrame(ctx, time.Since(start))
	}
}

// readFrame returns a fresh copy of the next frame, or a zero frame and a
// *DeviceIOError when the read fails.
func (e *Engine) readFrame(ctx context.Context, stream Stream, buf []float32) (Frame, error) {
	err := stream.Read()
	switch {
	case err == nil:
	case errors.Is(err, ErrInputOverflowed):
		e.metrics.RecordCaptureError(ctx, "overflow")
		e.log.Debug().Msg("Audio input overflowed")
	default:
		e.metrics.RecordCaptureError(ctx, "read")
		return make(Frame, len(buf)), &DeviceIOError{Device: e.device.Name, Err: err}
	}

	frame := make(Frame, len(buf))
	copy(frame, buf)
	return frame, nil
}

// Stop ends capture and releases the stream. It is idempotent and valid in
// every state. Release failures are logged and returned, but the engine is
// closed regardless.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.state
	e.state = StateClosed

	switch prev {
	case StateIdle, StateClosed:
		return nil
	case StateConfigured:
		return e.closeStreamLocked(false)
	}

	e.cancel()
	if e.wait() {
		return e.closeStreamLocked(true)
	}

	// The loop is parked inside a blocking read.
	e.log.Warn().Dur("timeout", e.joinTimeout).Msg("Capture loop did not exit, aborting stream")
	var errs []error
	if err := e.stream.Abort(); err != nil {
		errs = append(errs, &ResourceReleaseError{Op: "abort", Err: err})
	}
	if !e.wait() {
		err := &ResourceReleaseError{Op: "join", Err: errors.New("capture loop still blocked in read")}
		e.log.Error().Err(err).Msg("Leaving audio stream open")
		e.stream = nil
		return errors.Join(append(errs, err)...)
	}

	if err := e.closeStreamLocked(false); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) wait() bool {
	select {
	case <-e.done:
		return true
	case <-time.After(e.joinTimeout):
		return false
	}
}

func (e *Engine) closeStreamLocked(started bool) error {
	var errs []error
	if started {
		if err := e.stream.Stop(); err != nil {
			errs = append(errs, &ResourceReleaseError{Op: "stop", Err: err})
		}
	}
	if err := e.stream.Close(); err != nil {
		errs = append(errs, &ResourceReleaseError{Op: "close", Err: err})
	}
	e.stream = nil

	err := errors.Join(errs...)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to release audio stream")
	} else {
		e.log.Info().Msg("Audio stream closed")
	}
	return err
}

// State reports the lifecycle position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
