/*
Package layer implements a single RGBA canvas that tiles are blitted onto.

A layer resolves tiles against its current palette. Whenever that palette is
mutated or replaced with one holding different colors, the canvas is cleared
and every tile drawn since the previous reset is told to drop its cached
pixels. Nothing is redrawn automatically; the caller blits again.
*/
package layer

import (
	"image"

	"github.com/bodgit/bps/internal/parallel"
	"github.com/bodgit/bps/palette"
	"github.com/bodgit/bps/tile"
	"go.uber.org/zap"
)

// Layer is a fixed-size canvas. It is not safe for concurrent use.
type Layer struct {
	canvas  *image.NRGBA
	palette *palette.Palette
	version uint64
	tracked map[*tile.Tile]struct{}

	// Bumped on every change to the canvas
	gen      uint64
	snapshot *image.NRGBA
	snapGen  uint64

	workers int
	logger  *zap.Logger
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithWorkers sets how many goroutines large blits are spread across.
// Zero means GOMAXPROCS, one disables parallelism.
func WithWorkers(n int) Option {
	return func(l *Layer) {
		l.workers = n
	}
}

// New returns a transparent layer of the given size resolving tiles
// against p. A nil p is replaced with the default palette.
func New(width, height int, p *palette.Palette, options ...Option) *Layer {
	if p == nil {
		p = palette.New()
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	l := &Layer{
		canvas:  image.NewNRGBA(image.Rect(0, 0, width, height)),
		palette: p,
		version: p.Version(),
		tracked: make(map[*tile.Tile]struct{}),
		gen:     1,
		logger:  zap.NewNop(),
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// Width returns the width of the canvas.
func (l *Layer) Width() int {
	return l.canvas.Rect.Dx()
}

// Height returns the height of the canvas.
func (l *Layer) Height() int {
	return l.canvas.Rect.Dy()
}

// Bounds returns the canvas rectangle, always anchored at the origin.
func (l *Layer) Bounds() image.Rectangle {
	return l.canvas.Rect
}

// Palette returns the palette tiles are currently resolved against.
func (l *Layer) Palette() *palette.Palette {
	return l.palette
}

// Tracked returns how many distinct tiles have been blitted since the last
// palette reset.
func (l *Layer) Tracked() int {
	return len(l.tracked)
}

func (l *Layer) reset() {
	l.logger.Debug("palette changed, resetting layer",
		zap.Uint64("from", l.version),
		zap.Uint64("to", l.palette.Version()),
		zap.Int("tiles", len(l.tracked)))

	clear(l.canvas.Pix)
	for t := range l.tracked {
		t.Invalidate()
	}
	clear(l.tracked)
	l.version = l.palette.Version()
	l.gen++
}

// Blit draws t with its top-left corner at (x, y). Only pixels that are
// opaque in the tile mask are written and they replace whatever the canvas
// held. Any part of the tile outside the canvas is clipped; a tile that is
// entirely outside is ignored.
func (l *Layer) Blit(t *tile.Tile, x, y int) {
	if t == nil {
		return
	}

	if l.version != l.palette.Version() {
		l.reset()
	}

	rgba, mask := t.Resolve(l.palette)

	dst := t.Bounds().Add(image.Pt(x, y)).Intersect(l.canvas.Rect)
	if dst.Empty() {
		return
	}

	tw := t.Width()
	sx := dst.Min.X - x
	w := dst.Dx()

	parallel.Rows(dst.Min.Y, dst.Max.Y, l.workers, func(y0, y1 int) {
		for dy := y0; dy < y1; dy++ {
			si := (dy-y)*tw + sx
			di := l.canvas.PixOffset(dst.Min.X, dy)
			row := mask[si : si+w]
			src := rgba.Pix[si*4 : (si+w)*4]
			out := l.canvas.Pix[di : di+w*4]
			for i, opaque := range row {
				if opaque {
					copy(out[i*4:i*4+4], src[i*4:i*4+4])
				}
			}
		}
	})

	l.tracked[t] = struct{}{}
	l.gen++
}

// Clear makes the whole canvas transparent. Palette bookkeeping and the
// set of tracked tiles are left alone.
func (l *Layer) Clear() {
	clear(l.canvas.Pix)
	l.gen++
}

// SetPalette switches the layer to p. If p is the current palette, or holds
// exactly the same colors, and the current palette has not changed since
// the last reset, the canvas is kept. Otherwise the layer is reset as if
// the palette had been mutated.
func (l *Layer) SetPalette(p *palette.Palette) {
	if p == nil {
		return
	}

	old := l.palette
	pending := l.version != old.Version()
	l.palette = p

	if !pending && (p == old || p.Equal(old)) {
		l.version = p.Version()
		return
	}

	l.reset()
}

// Image returns the canvas contents. The same image is returned until the
// layer is next modified; callers must not write to it.
func (l *Layer) Image() *image.NRGBA {
	if l.snapshot == nil || l.snapGen != l.gen {
		m := image.NewNRGBA(l.canvas.Rect)
		copy(m.Pix, l.canvas.Pix)
		l.snapshot, l.snapGen = m, l.gen
	}
	return l.snapshot
}

// DrawRows copies every pixel with a non-zero alpha in rows [y0, y1) onto
// the same coordinates of dst, leaving the other dst pixels untouched.
func (l *Layer) DrawRows(dst *image.NRGBA, y0, y1 int) {
	r := image.Rect(l.canvas.Rect.Min.X, y0, l.canvas.Rect.Max.X, y1).Intersect(l.canvas.Rect).Intersect(dst.Rect)
	if r.Empty() {
		return
	}

	n := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := l.canvas.PixOffset(r.Min.X, y)
		di := dst.PixOffset(r.Min.X, y)
		src := l.canvas.Pix[si : si+n]
		out := dst.Pix[di : di+n]
		for i := 0; i < n; i += 4 {
			if src[i+3] != 0 {
				copy(out[i:i+4], src[i:i+4])
			}
		}
	}
}
