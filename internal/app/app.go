package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/petems/phasescope/internal/audio"
	"github.com/petems/phasescope/internal/config"
	"github.com/petems/phasescope/internal/render"
	"github.com/rs/zerolog"
)

// StatusUpdater is an interface for reporting visualizer status to a front end
type StatusUpdater interface {
	SetIdle()
	SetRunning()
	SetError()
}

// DeviceCatalog resolves configured device names.
type DeviceCatalog interface {
	ListInputDevices() (*audio.DeviceMap, error)
	DefaultInput() (*audio.Device, error)
}

// CaptureEngine is the audio side of the visualizer.
type CaptureEngine interface {
	Setup(device *audio.Device, sampleRate, frameSize int) error
	Start(ctx context.Context) error
	Stop() error
}

// Renderer draws until it is told to stop, then stops capture.
type Renderer interface {
	Run(ctx context.Context, capture render.Stopper) error
}

type Config struct {
	Catalog       DeviceCatalog
	Engine        CaptureEngine
	Renderer      Renderer
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

type App struct {
	catalog  DeviceCatalog
	engine   CaptureEngine
	renderer Renderer
	cfg      *config.Config
	log      zerolog.Logger
	status   StatusUpdater

	mu      sync.Mutex
	device  *audio.Device
	running bool
}

func New(cfg Config) *App {
	return &App{
		catalog:  cfg.Catalog,
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		cfg:      cfg.Config,
		log:      cfg.Logger,
		status:   cfg.StatusUpdater,
	}
}

// SetRenderer sets the render loop (it needs a canvas, which is opened after
// Prepare succeeds)
func (a *App) SetRenderer(r Renderer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.renderer = r
}

// Prepare resolves the configured input device and opens its stream. An
// empty device name selects the host default.
func (a *App) Prepare() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	device, err := a.resolveInput(a.cfg.Audio.InputDevice)
	if err != nil {
		a.setError()
		return err
	}

	if err := a.engine.Setup(device, a.cfg.Audio.SampleRate, a.cfg.Audio.FrameSize); err != nil {
		a.setError()
		return err
	}
	a.device = device
	a.log.Info().Str("device", device.Name).Msg("Input device ready")
	return nil
}

func (a *App) resolveInput(name string) (*audio.Device, error) {
	if name == "" {
		device, err := a.catalog.DefaultInput()
		if err != nil {
			return nil, &audio.ConfigurationError{Field: "device", Reason: fmt.Sprintf("no default input: %v", err)}
		}
		return device, nil
	}

	devices, err := a.catalog.ListInputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	device, ok := devices.Lookup(name)
	if !ok {
		return nil, &audio.ConfigurationError{Field: "device", Reason: fmt.Sprintf("input device %q not found", name)}
	}
	return device, nil
}

// Run starts capture and blocks in the render loop until the visualizer is
// closed or ctx is done. Capture has been stopped when Run returns.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.device == nil {
		a.mu.Unlock()
		return errors.New("app: Run called before Prepare")
	}
	if a.running {
		a.mu.Unlock()
		return errors.New("app: already running")
	}
	if a.renderer == nil {
		a.mu.Unlock()
		return errors.New("app: no renderer")
	}
	renderer := a.renderer
	if err := a.engine.Start(ctx); err != nil {
		a.setError()
		a.mu.Unlock()
		return err
	}
	a.running = true
	if a.status != nil {
		a.status.SetRunning()
	}
	a.mu.Unlock()

	a.log.Info().Msg("Visualizer running")
	err := renderer.Run(ctx, a.engine)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	if err != nil {
		a.log.Error().Err(err).Msg("Render loop failed")
		a.setError()
		return err
	}
	if a.status != nil {
		a.status.SetIdle()
	}
	a.log.Info().Msg("Visualizer stopped")
	return nil
}

// Shutdown stops capture. Safe to call at any point and more than once.
func (a *App) Shutdown(ctx context.Context) error {
	return a.engine.Stop()
}

func (a *App) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Device is the resolved input device, nil before Prepare.
func (a *App) Device() *audio.Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device
}

func (a *App) setError() {
	if a.status != nil {
		a.status.SetError()
	}
}
