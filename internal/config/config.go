package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/brunoga/deep"
	"gopkg.in/yaml.v3"
)

// Renderer names accepted by VisualConfig.Renderer.
const (
	RendererSDL      = "sdl"
	RendererTerminal = "terminal"
)

// Bounds enforced by Validate.
const (
	MinTrailLength = 10
	MaxTrailLength = 500
	MinDotSize     = 1
	MaxDotSize     = 10
	MinFPS         = 1
	MaxFPS         = 240
	MinCanvasSide  = 100
	MaxCanvasSide  = 4096
)

type Config struct {
	LogLevel string        `json:"log_level" yaml:"log_level"`
	Audio    AudioConfig   `json:"audio" yaml:"audio"`
	Visual   VisualConfig  `json:"visual" yaml:"visual"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics"`
}

type AudioConfig struct {
	InputDevice  string `json:"input_device" yaml:"input_device"`   // empty selects the host default
	OutputDevice string `json:"output_device" yaml:"output_device"` // informational only
	SampleRate   int    `json:"sample_rate" yaml:"sample_rate"`
	FrameSize    int    `json:"frame_size" yaml:"frame_size"`
}

type VisualConfig struct {
	TrailLength int    `json:"trail_length" yaml:"trail_length"`
	ColorScheme string `json:"color_scheme" yaml:"color_scheme"`
	DotSize     int    `json:"dot_size" yaml:"dot_size"`
	Stride      int    `json:"stride" yaml:"stride"`
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
	FPS         int    `json:"fps" yaml:"fps"`
	Renderer    string `json:"renderer" yaml:"renderer"` // "sdl" or "terminal"
}

type MetricsConfig struct {
	// ListenAddr enables a Prometheus /metrics listener when non-empty.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate: 44100,
			FrameSize:  1024,
		},
		Visual: VisualConfig{
			TrailLength: 100,
			ColorScheme: "Rainbow",
			DotSize:     3,
			Stride:      10,
			Width:       800,
			Height:      800,
			FPS:         60,
			Renderer:    RendererSDL,
		},
	}
}

// Load reads the settings file from the platform config directory, or
// returns defaults when it does not exist yet.
func Load() (*Config, error) {
	cfg, err := LoadFile(configPath())
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads path over the defaults. Files ending in .yaml or .yml are
// decoded as YAML with unknown fields rejected; anything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode yaml %q: %w", path, err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode json %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the platform settings file.
func (c *Config) Save() error {
	return c.SaveFile(configPath())
}

// SaveFile writes the config to path, as YAML for .yaml and .yml files and
// indented JSON otherwise.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Clone returns an independent copy, so a front end can edit settings
// without touching the live config until it commits.
func (c *Config) Clone() *Config {
	cp, err := deep.Copy(c)
	if err != nil {
		// Config holds only plain values; a copy failure is a programming error.
		panic(fmt.Sprintf("config: clone: %v", err))
	}
	return cp
}

// Validate checks every bounded field and returns all failures joined.
// The color scheme is not checked here: unknown names fall back to Rainbow
// when the palette is built.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d must be positive", cfg.Audio.FrameSize))
	}

	v := cfg.Visual
	if v.TrailLength < MinTrailLength || v.TrailLength > MaxTrailLength {
		errs = append(errs, fmt.Errorf("visual.trail_length %d is out of range [%d, %d]", v.TrailLength, MinTrailLength, MaxTrailLength))
	}
	if v.DotSize < MinDotSize || v.DotSize > MaxDotSize {
		errs = append(errs, fmt.Errorf("visual.dot_size %d is out of range [%d, %d]", v.DotSize, MinDotSize, MaxDotSize))
	}
	if v.Stride < 1 || (cfg.Audio.FrameSize > 0 && v.Stride > cfg.Audio.FrameSize) {
		errs = append(errs, fmt.Errorf("visual.stride %d is out of range [1, %d]", v.Stride, cfg.Audio.FrameSize))
	}
	if v.FPS < MinFPS || v.FPS > MaxFPS {
		errs = append(errs, fmt.Errorf("visual.fps %d is out of range [%d, %d]", v.FPS, MinFPS, MaxFPS))
	}
	if v.Width < MinCanvasSide || v.Width > MaxCanvasSide {
		errs = append(errs, fmt.Errorf("visual.width %d is out of range [%d, %d]", v.Width, MinCanvasSide, MaxCanvasSide))
	}
	if v.Height < MinCanvasSide || v.Height > MaxCanvasSide {
		errs = append(errs, fmt.Errorf("visual.height %d is out of range [%d, %d]", v.Height, MinCanvasSide, MaxCanvasSide))
	}
	if v.Renderer != RendererSDL && v.Renderer != RendererTerminal {
		errs = append(errs, fmt.Errorf("visual.renderer %q is invalid; valid values: %s, %s", v.Renderer, RendererSDL, RendererTerminal))
	}

	return errors.Join(errs...)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "phasescope", "config.json")
}
