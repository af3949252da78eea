package render

import (
	"fmt"
	"image/color"

	"github.com/veandco/go-sdl2/sdl"
)

// WindowTitle is the caption of the SDL window.
const WindowTitle = "Audio Phase Space Visualizer"

// SDLCanvas draws into an SDL window. It must be created, driven, and closed
// on the main OS thread.
type SDLCanvas struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	w, h     int
}

// NewSDLCanvas initializes SDL video and opens a w×h window.
func NewSDLCanvas(w, h int) (*SDLCanvas, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL: %w", err)
	}

	window, err := sdl.CreateWindow(WindowTitle, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(w), int32(h), sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	return &SDLCanvas{window: window, renderer: renderer, w: w, h: h}, nil
}

func (c *SDLCanvas) Size() (int, int) { return c.w, c.h }

func (c *SDLCanvas) Clear() {
	c.renderer.SetDrawColor(0, 0, 0, 0xff)
	c.renderer.Clear()
}

func (c *SDLCanvas) FillCircle(x, y, r int, col color.RGBA) {
	c.renderer.SetDrawColor(col.R, col.G, col.B, 0xff)
	for _, s := range circleSpans(r) {
		row := int32(y + s.dy)
		c.renderer.DrawLine(int32(x-s.dx), row, int32(x+s.dx), row)
	}
}

func (c *SDLCanvas) Present() error {
	c.renderer.Present()
	return nil
}

// PollQuit drains the SDL event queue. Closing the window or pressing
// Escape asks to quit.
func (c *SDLCanvas) PollQuit() bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
				quit = true
			}
		}
	}
	return quit
}

func (c *SDLCanvas) Close() error {
	var err error
	if rerr := c.renderer.Destroy(); rerr != nil {
		err = fmt.Errorf("failed to destroy renderer: %w", rerr)
	}
	if werr := c.window.Destroy(); werr != nil && err == nil {
		err = fmt.Errorf("failed to destroy window: %w", werr)
	}
	sdl.Quit()
	return err
}
