package logging

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func isolateLogDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)
}

func TestLevelParsing(t *testing.T) {
	isolateLogDir(t)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := NewFileOnly(tt.level).GetLevel(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFileOnlyWritesToLogFile(t *testing.T) {
	isolateLogDir(t)

	log := NewFileOnly("info")
	log.Info().Str("device", "test").Msg("capture started")

	data, err := os.ReadFile(Path())
	if err != nil {
		t.Fatalf("expected log file at %s: %v", Path(), err)
	}
	if !strings.Contains(string(data), "capture started") {
		t.Errorf("expected message in log file, got %q", string(data))
	}
}
