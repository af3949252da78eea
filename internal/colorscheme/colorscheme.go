// Package colorscheme builds the color tables used to age-grade trail points.
package colorscheme

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Scheme identifies one of the fixed color schemes.
type Scheme int

const (
	Rainbow Scheme = iota
	Monochrome
	Fire
	Ocean
	GreenGradient
)

var schemeNames = [...]string{
	Rainbow:       "Rainbow",
	Monochrome:    "Monochrome",
	Fire:          "Fire",
	Ocean:         "Ocean",
	GreenGradient: "Green Gradient",
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return schemeNames[Rainbow]
	}
	return schemeNames[s]
}

// ParseScheme looks up a scheme by its display name. Names are
// case-sensitive. Unknown names return Rainbow and false.
func ParseScheme(name string) (Scheme, bool) {
	for i, n := range schemeNames {
		if n == name {
			return Scheme(i), true
		}
	}
	return Rainbow, false
}

// Names lists every scheme name in menu order.
func Names() []string {
	out := make([]string, len(schemeNames))
	copy(out, schemeNames[:])
	return out
}

// Table holds one color per trail slot.
type Table []color.RGBA

// Generate returns the length-entry table for scheme. Out-of-range schemes
// produce the Rainbow table. A length below 1 yields an empty table.
func Generate(scheme Scheme, length int) Table {
	if length < 1 {
		return Table{}
	}
	t := make(Table, length)
	for i := range t {
		frac := float64(i) / float64(length)
		switch scheme {
		case Monochrome:
			t[i] = rgb(255, 255, 255)
		case Fire:
			t[i] = rgb(channel(255*frac*2), channel(255*frac), 0)
		case Ocean:
			t[i] = rgb(0, channel(255*frac), channel(255*(1-frac)))
		case GreenGradient:
			t[i] = rgb(0, channel(255*frac), 0)
		default:
			hue := float64(i) * 360 / float64(length)
			for hue >= 360 {
				hue -= 360
			}
			r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
			t[i] = rgb(r, g, b)
		}
	}
	return t
}

// GenerateNamed is Generate keyed by display name. It also returns the scheme
// actually used, which is Rainbow for unknown names.
func GenerateNamed(name string, length int) (Table, Scheme) {
	s, _ := ParseScheme(name)
	return Generate(s, length), s
}

// channel truncates v toward zero and caps it at 255.
func channel(v float64) uint8 {
	n := int(v)
	switch {
	case n > 255:
		return 255
	case n < 0:
		return 0
	}
	return uint8(n)
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
