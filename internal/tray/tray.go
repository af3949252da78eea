package tray

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/ncruces/zenity"
	"github.com/petems/phasescope/internal/audio"
	"github.com/petems/phasescope/internal/colorscheme"
	"github.com/petems/phasescope/internal/config"
	"github.com/petems/phasescope/internal/logging"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// Preset values offered in the menus.
var (
	TrailPresets = []int{10, 50, 100, 250, 500}
	DotPresets   = []int{1, 3, 5, 10}
)

// DeviceLister is the part of the audio catalog the menus need.
type DeviceLister interface {
	Devices() (inputs, outputs *audio.DeviceMap, err error)
}

// UI is the tray menu used to pick settings before the visualizer starts.
// It edits a clone of the config and only writes it back on Start.
type UI struct {
	catalog    DeviceLister
	cfg        *config.Config
	draft      *config.Config
	configPath string
	version    string
	log        zerolog.Logger

	mu      sync.Mutex
	inputs  *audio.DeviceMap
	outputs *audio.DeviceMap
	start   bool
	err     error
}

// New returns a tray UI over cfg. configPath is where Start saves the
// settings; empty means the platform default.
func New(catalog DeviceLister, cfg *config.Config, configPath, version string, log zerolog.Logger) *UI {
	return &UI{
		catalog:    catalog,
		cfg:        cfg,
		draft:      cfg.Clone(),
		configPath: configPath,
		version:    version,
		log:        log,
	}
}

// Run blocks in the tray loop on the main thread. It reports whether the
// user chose Start Visualizer; if so the chosen settings have been copied
// into the config passed to New and saved.
func (u *UI) Run() (bool, error) {
	systray.Run(u.onReady, u.onExit)

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.start, u.err
}

func (u *UI) onReady() {
	u.updateStatus("idle")
	systray.SetTooltip("Audio phase space visualizer " + u.version)

	u.loadDevices()

	mInput := systray.AddMenuItem("Input Device", "Microphone to visualize")
	u.buildDeviceMenu(mInput, "input", u.inputs, u.draft.Audio.InputDevice, func(name string) {
		u.draft.Audio.InputDevice = name
	})
	mOutput := systray.AddMenuItem("Output Device", "Playback device (not used for capture)")
	u.buildDeviceMenu(mOutput, "output", u.outputs, u.draft.Audio.OutputDevice, func(name string) {
		u.draft.Audio.OutputDevice = name
	})
	systray.AddSeparator()

	mScheme := systray.AddMenuItem("Color Scheme", "Trail coloring")
	buildRadioMenu(mScheme, colorscheme.Names(), u.draft.Visual.ColorScheme, func(name string) {
		u.set(func(c *config.Config) { c.Visual.ColorScheme = name })
		u.log.Info().Str("scheme", name).Msg("Changed color scheme")
	})

	mTrail := systray.AddMenuItem("Trail Length", "Points kept on screen")
	buildRadioMenu(mTrail, presetTitles("points", TrailPresets), presetTitle(u.draft.Visual.TrailLength, "points"), func(title string) {
		n, _ := parsePreset(title)
		u.set(func(c *config.Config) { c.Visual.TrailLength = n })
		u.log.Info().Int("trail_length", n).Msg("Changed trail length")
	})

	mDot := systray.AddMenuItem("Dot Size", "Radius of each point")
	buildRadioMenu(mDot, presetTitles("px", DotPresets), presetTitle(u.draft.Visual.DotSize, "px"), func(title string) {
		n, _ := parsePreset(title)
		u.set(func(c *config.Config) { c.Visual.DotSize = n })
		u.log.Info().Int("dot_size", n).Msg("Changed dot size")
	})

	systray.AddSeparator()
	mCopy := systray.AddMenuItem("Copy Device List", "Copy audio devices to the clipboard")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	systray.AddSeparator()
	mStart := systray.AddMenuItem("Start Visualizer", "Save settings and open the visualizer")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mCopy, mLogs, mStart, mQuit)
}

func (u *UI) handleEvents(mCopy, mLogs, mStart, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mCopy.ClickedCh:
			u.copyDeviceList()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mStart.ClickedCh:
			if u.startVisualizer() {
				systray.Quit()
				return
			}
		case <-mQuit.ClickedCh:
			u.log.Info().Msg("Quit from tray")
			systray.Quit()
			return
		}
	}
}

func (u *UI) loadDevices() {
	inputs, outputs, err := u.catalog.Devices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		inputs, outputs = audio.NewDeviceMap(), audio.NewDeviceMap()
	}
	u.inputs, u.outputs = inputs, outputs
}

func (u *UI) buildDeviceMenu(parent *systray.MenuItem, kind string, devices *audio.DeviceMap, selected string, pick func(string)) {
	if devices.Len() == 0 {
		parent.Disable()
		return
	}
	buildRadioMenu(parent, devices.Names(), selected, func(name string) {
		u.mu.Lock()
		pick(name)
		u.mu.Unlock()
		u.log.Info().Str("device", name).Str("kind", kind).Msg("Changed audio device")
	})
}

// buildRadioMenu adds one submenu item per title. Clicking an item checks it,
// unchecks the others, and calls pick with its title.
func buildRadioMenu(parent *systray.MenuItem, titles []string, selected string, pick func(string)) {
	items := make(map[string]*systray.MenuItem, len(titles))
	var mu sync.Mutex

	for _, title := range titles {
		item := parent.AddSubMenuItem(title, "")
		if title == selected {
			item.Check()
		}
		items[title] = item

		go func(title string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				mu.Lock()
				for t, itm := range items {
					if t != title {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				mu.Unlock()
				pick(title)
			}
		}(title, item)
	}
}

func (u *UI) set(edit func(*config.Config)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	edit(u.draft)
}

// startVisualizer validates and saves the draft. It reports whether the
// tray should close.
func (u *UI) startVisualizer() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := validateSelection(u.draft, u.inputs, u.outputs); err != nil {
		u.log.Warn().Err(err).Msg("Cannot start visualizer")
		u.updateStatus("error")
		if derr := zenity.Error(err.Error(), zenity.Title("Phase Scope")); derr != nil && !errors.Is(derr, zenity.ErrCanceled) {
			u.log.Error().Err(derr).Msg("Failed to show dialog")
		}
		return false
	}

	*u.cfg = *u.draft.Clone()
	if err := u.save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save settings")
		u.err = err
	}
	u.start = true
	u.log.Info().
		Str("input", u.cfg.Audio.InputDevice).
		Str("scheme", u.cfg.Visual.ColorScheme).
		Int("trail_length", u.cfg.Visual.TrailLength).
		Int("dot_size", u.cfg.Visual.DotSize).
		Msg("Starting visualizer")
	return true
}

func (u *UI) save() error {
	if u.configPath == "" {
		return u.cfg.Save()
	}
	return u.cfg.SaveFile(u.configPath)
}

func (u *UI) copyDeviceList() {
	u.mu.Lock()
	text := deviceListText(u.inputs, u.outputs)
	u.mu.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy device list")
		return
	}
	u.log.Info().Msg("Copied device list to clipboard")
}

func (u *UI) openLogs() {
	if err := browser.OpenFile(logging.Path()); err != nil {
		u.log.Error().Err(err).Str("path", logging.Path()).Msg("Failed to open logs")
	}
}

func (u *UI) onExit() {
	u.log.Debug().Msg("Tray closed")
}

// updateStatus sets the tray title with a status indicator
func (u *UI) updateStatus(status string) {
	systray.SetTitle(fmt.Sprintf("〰 %s", emojiForStatus(status)))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "error":
		return "⚪️" // White - selection problem
	default:
		return "🟢" // Green - ready
	}
}

// validateSelection checks the draft can be started. An input device must be
// chosen; an output device is required only when the host has outputs.
func validateSelection(cfg *config.Config, inputs, outputs *audio.DeviceMap) error {
	var errs []error

	if name := cfg.Audio.InputDevice; name == "" {
		errs = append(errs, errors.New("select an input device"))
	} else if _, ok := inputs.Lookup(name); !ok {
		errs = append(errs, fmt.Errorf("input device %q is no longer available", name))
	}

	if outputs.Len() > 0 {
		if name := cfg.Audio.OutputDevice; name == "" {
			errs = append(errs, errors.New("select an output device"))
		} else if _, ok := outputs.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("output device %q is no longer available", name))
		}
	}

	if err := config.Validate(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// presetTitle renders a preset menu entry, e.g. "100 points".
func presetTitle(value int, unit string) string {
	return fmt.Sprintf("%d %s", value, unit)
}

func presetTitles(unit string, values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = presetTitle(v, unit)
	}
	return out
}

// parsePreset reverses presetTitle.
func parsePreset(title string) (int, error) {
	num, _, _ := strings.Cut(title, " ")
	return strconv.Atoi(num)
}

// deviceListText is the clipboard form of the device catalog.
func deviceListText(inputs, outputs *audio.DeviceMap) string {
	var b strings.Builder
	section := func(label string, devices *audio.DeviceMap) {
		fmt.Fprintf(&b, "%s:\n", label)
		if devices.Len() == 0 {
			b.WriteString("  (none)\n")
			return
		}
		for _, name := range devices.Names() {
			d, _ := devices.Lookup(name)
			fmt.Fprintf(&b, "  %s [%s, %d in / %d out, %.0f Hz]\n",
				name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
		}
	}
	section("Input devices", inputs)
	section("Output devices", outputs)
	return b.String()
}
