package render

import (
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func newSimCanvas(t *testing.T) (*TerminalCanvas, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	screen.SetSize(40, 20)
	c := newTerminalCanvas(screen)
	t.Cleanup(func() { c.Close() })
	return c, screen
}

func TestTerminalCanvasFillCircle(t *testing.T) {
	c, screen := newSimCanvas(t)

	c.Clear()
	c.FillCircle(10, 5, 3, color.RGBA{R: 255, A: 255})
	if err := c.Present(); err != nil {
		t.Fatal(err)
	}

	_, _, style, _ := screen.GetContent(10, 5)
	_, bg, _ := style.Decompose()
	if bg != tcell.NewRGBColor(255, 0, 0) {
		t.Errorf("expected red cell at the centre, got %v", bg)
	}

	// Radius 3 becomes 1 in the terminal.
	_, _, style, _ = screen.GetContent(12, 5)
	if _, bg, _ = style.Decompose(); bg != tcell.ColorBlack {
		t.Errorf("expected the scaled dot to stop short of x=12, got %v", bg)
	}
}

func TestTerminalCanvasQuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		r    rune
	}{
		{"escape", tcell.KeyEscape, 0},
		{"ctrl-c", tcell.KeyCtrlC, 0},
		{"q", tcell.KeyRune, 'q'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, screen := newSimCanvas(t)
			if c.PollQuit() {
				t.Fatal("expected no quit before input")
			}

			screen.InjectKey(tt.key, tt.r, tcell.ModNone)
			deadline := time.Now().Add(2 * time.Second)
			for !c.PollQuit() {
				if time.Now().After(deadline) {
					t.Fatal("quit key not observed")
				}
				time.Sleep(5 * time.Millisecond)
			}
		})
	}
}

func TestTerminalCanvasIgnoresOtherKeys(t *testing.T) {
	c, screen := newSimCanvas(t)

	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	time.Sleep(50 * time.Millisecond)
	if c.PollQuit() {
		t.Error("unexpected quit on 'x'")
	}
}
