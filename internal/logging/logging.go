package logging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a new zerolog logger with console and file output
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel is New with a minimum level ("debug", "info", "warn", ...).
// Unparseable levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	return build(level, true)
}

// NewFileOnly logs to the rotating file only. Used while a terminal
// renderer owns the screen.
func NewFileOnly(level string) zerolog.Logger {
	return build(level, false)
}

func build(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = fileWriter(Path())
	if console {
		// Multi-writer: console + file
		out = zerolog.MultiLevelWriter(
			zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
			out,
		)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
}

func fileWriter(path string) io.Writer {
	// Ensure directory exists
	os.MkdirAll(filepath.Dir(path), 0755)

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
}

// Path returns the platform-specific log file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "phasescope", "phasescope.log")
}
