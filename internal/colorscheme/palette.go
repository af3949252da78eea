package colorscheme

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/petems/phasescope/internal/observe"
	"github.com/rs/zerolog"
)

// cacheSize covers every scheme at a handful of trail lengths.
const cacheSize = 32

type tableKey struct {
	scheme Scheme
	length int
}

// Palette tracks the active scheme and trail length and hands out the
// matching table, regenerating only for settings it has not seen recently.
// Not safe for concurrent use.
type Palette struct {
	log     zerolog.Logger
	metrics *observe.Metrics
	cache   *lru.Cache[tableKey, Table]

	scheme Scheme
	length int
	table  Table
	dirty  bool
}

// NewPalette returns a palette for the named scheme. Unknown names are
// corrected to Rainbow.
func NewPalette(name string, length int, log zerolog.Logger, metrics *observe.Metrics) *Palette {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[tableKey, Table](cacheSize)
	p := &Palette{
		log:     log,
		metrics: metrics,
		cache:   cache,
		length:  length,
		dirty:   true,
	}
	p.SetScheme(name)
	return p
}

// SetScheme selects a scheme by name and reports whether the name had to be
// corrected to Rainbow.
func (p *Palette) SetScheme(name string) (corrected bool) {
	s, ok := ParseScheme(name)
	if !ok {
		p.log.Warn().Str("scheme", name).Str("using", s.String()).Msg("Unknown color scheme")
	}
	if s != p.scheme || p.table == nil {
		p.scheme = s
		p.dirty = true
	}
	return !ok
}

// SetLength sets the table length, normally the trail length.
func (p *Palette) SetLength(n int) {
	if n != p.length {
		p.length = n
		p.dirty = true
	}
}

func (p *Palette) Scheme() Scheme { return p.scheme }

func (p *Palette) Len() int { return p.length }

// Table returns the table for the current scheme and length. The result is
// shared and must not be modified.
func (p *Palette) Table() Table {
	if !p.dirty {
		return p.table
	}
	key := tableKey{scheme: p.scheme, length: p.length}
	t, ok := p.cache.Get(key)
	if !ok {
		t = Generate(p.scheme, p.length)
		p.cache.Add(key, t)
		p.metrics.RecordPaletteRegeneration(context.Background(), p.scheme.String())
		p.log.Debug().Str("scheme", p.scheme.String()).Int("length", p.length).Msg("Generated color table")
	}
	p.table = t
	p.dirty = false
	return t
}
