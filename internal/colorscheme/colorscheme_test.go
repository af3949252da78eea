package colorscheme

import (
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestParseScheme(t *testing.T) {
	tests := []struct {
		name   string
		want   Scheme
		wantOK bool
	}{
		{"Rainbow", Rainbow, true},
		{"Monochrome", Monochrome, true},
		{"Fire", Fire, true},
		{"Ocean", Ocean, true},
		{"Green Gradient", GreenGradient, true},
		{"fire", Rainbow, false},
		{"GreenGradient", Rainbow, false},
		{"", Rainbow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseScheme(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseScheme(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNamesRoundTrip(t *testing.T) {
	names := Names()
	if len(names) != 5 {
		t.Fatalf("expected 5 schemes, got %v", names)
	}
	for _, n := range names {
		s, ok := ParseScheme(n)
		if !ok || s.String() != n {
			t.Errorf("%q did not round trip (got %v)", n, s)
		}
	}
}

func TestGenerateIsPure(t *testing.T) {
	for _, name := range Names() {
		s, _ := ParseScheme(name)
		a, b := Generate(s, 37), Generate(s, 37)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: tables differ between calls", name)
		}
		if len(a) != 37 {
			t.Errorf("%s: expected 37 colors, got %d", name, len(a))
		}
	}
}

func TestUnknownSchemeFallsBackToRainbow(t *testing.T) {
	table, used := GenerateNamed("Plaid", 50)
	if used != Rainbow {
		t.Errorf("expected Rainbow, got %v", used)
	}
	if !reflect.DeepEqual(table, Generate(Rainbow, 50)) {
		t.Error("expected the Rainbow table for an unknown name")
	}
	if !reflect.DeepEqual(Generate(Scheme(42), 50), Generate(Rainbow, 50)) {
		t.Error("expected the Rainbow table for an out-of-range scheme")
	}
}

func TestRainbowHueSpread(t *testing.T) {
	for _, length := range []int{10, 100, 500} {
		table := Generate(Rainbow, length)
		first := hueOf(table[0])
		last := hueOf(table[length-1])

		want := 360 * float64(length-1) / float64(length)
		if got := math.Mod(last-first+360, 360); math.Abs(got-want) > 1 {
			t.Errorf("length %d: expected hue spread %.2f, got %.2f", length, want, got)
		}
	}
}

func hueOf(c color.RGBA) float64 {
	h, _, _ := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hsv()
	return h
}

func TestGradientValues(t *testing.T) {
	tests := []struct {
		scheme Scheme
		index  int
		want   color.RGBA
	}{
		{Monochrome, 0, rgb(255, 255, 255)},
		{Monochrome, 99, rgb(255, 255, 255)},
		{Fire, 0, rgb(0, 0, 0)},
		{Fire, 25, rgb(127, 63, 0)},
		{Fire, 75, rgb(255, 191, 0)},
		{Ocean, 0, rgb(0, 0, 255)},
		{Ocean, 25, rgb(0, 63, 191)},
		{Ocean, 50, rgb(0, 127, 127)},
		{GreenGradient, 0, rgb(0, 0, 0)},
		{GreenGradient, 25, rgb(0, 63, 0)},
		{GreenGradient, 99, rgb(0, 252, 0)},
		{Rainbow, 0, rgb(255, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			table := Generate(tt.scheme, 100)
			if got := table[tt.index]; got != tt.want {
				t.Errorf("index %d: expected %v, got %v", tt.index, tt.want, got)
			}
		})
	}
}

func TestGenerateEmpty(t *testing.T) {
	if got := Generate(Fire, 0); len(got) != 0 {
		t.Errorf("expected empty table, got %d entries", len(got))
	}
}
