package render

import (
	"fmt"
	"image/color"

	"github.com/gdamore/tcell/v2"
)

// TerminalCanvas draws into the terminal with one cell per pixel. Terminal
// cells are coarse, so dot radii are divided by three.
type TerminalCanvas struct {
	screen tcell.Screen
	events chan tcell.Event
	done   chan struct{}
	black  tcell.Style
}

// NewTerminalCanvas takes over the terminal until Close.
func NewTerminalCanvas() (*TerminalCanvas, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}
	return newTerminalCanvas(screen), nil
}

func newTerminalCanvas(screen tcell.Screen) *TerminalCanvas {
	black := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorBlack)
	screen.SetStyle(black)
	screen.HideCursor()

	c := &TerminalCanvas{
		screen: screen,
		events: make(chan tcell.Event, 16),
		done:   make(chan struct{}),
		black:  black,
	}
	go c.pollEvents()
	return c
}

// pollEvents forwards input until the screen is finalized.
func (c *TerminalCanvas) pollEvents() {
	for {
		ev := c.screen.PollEvent()
		if ev == nil {
			close(c.events)
			return
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *TerminalCanvas) Size() (int, int) { return c.screen.Size() }

func (c *TerminalCanvas) Clear() {
	c.screen.Fill(' ', c.black)
}

func (c *TerminalCanvas) FillCircle(x, y, r int, col color.RGBA) {
	style := c.black.Background(tcell.NewRGBColor(int32(col.R), int32(col.G), int32(col.B)))
	for _, s := range circleSpans(r / 3) {
		for dx := -s.dx; dx <= s.dx; dx++ {
			c.screen.SetContent(x+dx, y+s.dy, ' ', nil, style)
		}
	}
}

func (c *TerminalCanvas) Present() error {
	c.screen.Show()
	return nil
}

// PollQuit handles queued input. Escape, Ctrl-C and q ask to quit; a resize
// repaints the whole screen.
func (c *TerminalCanvas) PollQuit() bool {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return true
			}
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC || e.Rune() == 'q' {
					return true
				}
			case *tcell.EventResize:
				c.screen.Sync()
			}
		default:
			return false
		}
	}
}

func (c *TerminalCanvas) Close() error {
	close(c.done)
	c.screen.Fini()
	return nil
}
