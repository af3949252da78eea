package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ncruces/zenity"
	"github.com/petems/phasescope/internal/app"
	"github.com/petems/phasescope/internal/audio"
	"github.com/petems/phasescope/internal/config"
	"github.com/petems/phasescope/internal/logging"
	"github.com/petems/phasescope/internal/observe"
	"github.com/petems/phasescope/internal/permissions"
	"github.com/petems/phasescope/internal/render"
	"github.com/petems/phasescope/internal/tray"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

// SDL and the tray both need the main OS thread.
func init() {
	runtime.LockOSThread()
}

type options struct {
	configPath  string
	device      string
	scheme      string
	renderer    string
	metricsAddr string
	logLevel    string
	trail       int
	dot         int
	stride      int
	setup       bool
	listDevices bool
}

func main() {
	opts, set := parseFlags(os.Args[1:])
	if err := run(opts, set); err != nil {
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, map[string]bool) {
	var o options
	fs := flag.NewFlagSet("phasescope", flag.ExitOnError)
	fs.StringVar(&o.configPath, "config", "", "settings file (JSON, or YAML by extension); default is the platform config path")
	fs.StringVar(&o.device, "device", "", "input device name (empty for the host default)")
	fs.StringVar(&o.scheme, "scheme", "", "color scheme: Rainbow, Monochrome, Fire, Ocean, Green Gradient")
	fs.IntVar(&o.trail, "trail", 0, "trail length in points")
	fs.IntVar(&o.dot, "dot", 0, "dot radius in pixels")
	fs.IntVar(&o.stride, "stride", 0, "plot every Nth sample")
	fs.StringVar(&o.renderer, "renderer", "", "renderer: sdl or terminal")
	fs.BoolVar(&o.setup, "setup", false, "choose settings from the system tray before starting")
	fs.BoolVar(&o.listDevices, "list-devices", false, "print audio devices and exit")
	fs.StringVar(&o.metricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. :9464")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.Parse(args)

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set
}

// applyFlags overlays explicitly set flags on the file settings.
func applyFlags(cfg *config.Config, o options, set map[string]bool) {
	if set["device"] {
		cfg.Audio.InputDevice = o.device
	}
	if set["scheme"] {
		cfg.Visual.ColorScheme = o.scheme
	}
	if set["trail"] {
		cfg.Visual.TrailLength = o.trail
	}
	if set["dot"] {
		cfg.Visual.DotSize = o.dot
	}
	if set["stride"] {
		cfg.Visual.Stride = o.stride
	}
	if set["renderer"] {
		cfg.Visual.Renderer = o.renderer
	}
	if set["metrics"] {
		cfg.Metrics.ListenAddr = o.metricsAddr
	}
	if set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func run(o options, set map[string]bool) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Error().Err(err).Msg("Failed to load config")
		return err
	}
	applyFlags(cfg, o, set)

	// The terminal renderer owns stdout/stderr while it runs.
	log := logging.NewWithLevel(cfg.LogLevel)
	if cfg.Visual.Renderer == config.RendererTerminal && !o.listDevices {
		log = logging.NewFileOnly(cfg.LogLevel)
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("Invalid settings")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics must be installed before the first instrument is created.
	shutdownMetrics := func(context.Context) error { return nil }
	if cfg.Metrics.ListenAddr != "" {
		if shutdownMetrics, err = observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "phasescope",
			ServiceVersion: Version,
		}); err != nil {
			log.Error().Err(err).Msg("Failed to initialize metrics")
			return err
		}
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			log.Error().Err(err).Msg("Failed to flush metrics")
		}
	}()

	host, err := audio.OpenHost()
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize audio")
		return err
	}
	defer func() {
		if err := host.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to terminate audio host")
		}
	}()

	catalog := audio.NewCatalog(host, log, nil)

	if o.listDevices {
		return printDevices(os.Stdout, catalog)
	}

	var status app.StatusUpdater
	if o.setup {
		ui := tray.New(catalog, cfg, o.configPath, Version, log)
		start, err := ui.Run()
		if err != nil {
			log.Warn().Err(err).Msg("Settings were not saved")
		}
		if !start {
			return nil
		}
		status = &desktopStatus{log: log}
	}

	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsurePermissions(log); err != nil {
		log.Error().Err(err).Msg("Required permissions not granted")
		return err
	}

	frames := audio.NewFrameBuffer(cfg.Audio.FrameSize)
	engine := audio.NewEngine(host, frames, log, nil)

	// Resolve the device before opening a window so setup errors surface
	// first; the renderer is attached once the canvas exists.
	application := app.New(app.Config{
		Catalog:       catalog,
		Engine:        engine,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: status,
	})
	defer func() {
		if err := application.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to release audio stream")
		}
	}()
	if err := application.Prepare(); err != nil {
		log.Error().Err(err).Msg("Failed to prepare capture")
		var cfgErr *audio.ConfigurationError
		if o.setup && errors.As(err, &cfgErr) {
			zenity.Error(err.Error(), zenity.Title("Phase Scope"))
		}
		return err
	}

	canvas, err := newCanvas(cfg.Visual)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open render surface")
		return err
	}
	application.SetRenderer(render.NewLoop(cfg.Visual, frames, canvas, log, nil))

	log.Info().Str("version", Version).Str("commit", Commit).Msg("Phase scope starting...")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.ListenAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.ListenAddr, log) })
	}

	// Render on the main thread; the listener and signal watcher share gctx.
	runErr := application.Run(gctx)
	stop()

	if err := canvas.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close render surface")
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Metrics listener failed")
		runErr = errors.Join(runErr, err)
	}
	log.Info().Msg("Shutting down...")
	return runErr
}

func newCanvas(v config.VisualConfig) (render.Canvas, error) {
	if v.Renderer == config.RendererTerminal {
		return render.NewTerminalCanvas()
	}
	return render.NewSDLCanvas(v.Width, v.Height)
}

func printDevices(w io.Writer, catalog *audio.Catalog) error {
	inputs, outputs, err := catalog.Devices()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, list := range []struct {
		title   string
		devices *audio.DeviceMap
	}{
		{"INPUT DEVICES", inputs},
		{"OUTPUT DEVICES", outputs},
	} {
		fmt.Fprintf(tw, "%s\tHOST API\tIN\tOUT\tRATE\n", list.title)
		for _, name := range list.devices.Names() {
			d, _ := list.devices.Lookup(name)
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.0f\n", name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// serveMetrics runs the Prometheus listener until ctx is done.
func serveMetrics(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
