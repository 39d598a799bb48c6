/*
Package tile implements the basic drawable unit: a fixed-size block of
palette indices.

A tile never changes its indices after construction. Resolving it against a
palette produces an RGBA image and an opacity mask which are cached and
tagged with the palette they were built from and that palette's version, so
mutating the palette or switching to another one transparently rebuilds them.
*/
package tile

import (
	"errors"
	"fmt"
	"image"

	"github.com/bodgit/bps/palette"
)

var (
	// ErrShapeMismatch is returned when index data or a mask does not
	// match the tile dimensions.
	ErrShapeMismatch = errors.New("tile: shape mismatch")
	// ErrInvalidMaskType is returned when a mask contains values other
	// than fully transparent or fully opaque.
	ErrInvalidMaskType = errors.New("tile: mask is not boolean")
)

// Tile is an immutable matrix of palette indices with a lazily resolved
// RGBA cache. It is not safe for concurrent use.
type Tile struct {
	width   int
	height  int
	indices []uint8

	// Manual mask, nil unless SetMask was called
	mask []bool

	// Cache, valid only for src at version
	src      *palette.Palette
	version  uint64
	rgba     *image.NRGBA
	opaque   []bool
	resolves int
}

func validate(indices []uint8) error {
	for i, v := range indices {
		if int(v) >= palette.Size {
			return fmt.Errorf("tile: pixel %d: %w: %d", i, palette.ErrIndexOutOfRange, v)
		}
	}
	return nil
}

// New returns a tile of the given size built from indices, which are read
// row by row and copied.
func New(width, height int, indices []uint8) (*Tile, error) {
	if width <= 0 || height <= 0 || len(indices) != width*height {
		return nil, fmt.Errorf("%w: %dx%d tile with %d indices", ErrShapeMismatch, width, height, len(indices))
	}
	if err := validate(indices); err != nil {
		return nil, err
	}
	return &Tile{
		width:   width,
		height:  height,
		indices: append([]uint8(nil), indices...),
	}, nil
}

// FromRows returns a tile built from a slice of rows. Every row must have
// the same, non-zero, length.
func FromRows(rows [][]uint8) (*Tile, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty tile", ErrShapeMismatch)
	}
	w := len(rows[0])
	indices := make([]uint8, 0, w*len(rows))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("%w: row %d has %d indices, expected %d", ErrShapeMismatch, y, len(row), w)
		}
		indices = append(indices, row...)
	}
	return New(w, len(rows), indices)
}

// FromPaletted returns a tile copied from the area r of m.
func FromPaletted(m *image.Paletted, r image.Rectangle) (*Tile, error) {
	r = r.Intersect(m.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: empty tile", ErrShapeMismatch)
	}
	indices := make([]uint8, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := m.PixOffset(r.Min.X, y)
		indices = append(indices, m.Pix[i:i+r.Dx()]...)
	}
	return New(r.Dx(), r.Dy(), indices)
}

// Width returns the width of the tile in pixels.
func (t *Tile) Width() int {
	return t.width
}

// Height returns the height of the tile in pixels.
func (t *Tile) Height() int {
	return t.height
}

// Bounds returns the footprint of the tile when placed at the origin.
func (t *Tile) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.width, t.height)
}

// IndexAt returns the palette index at (x, y), or 0 outside the tile.
func (t *Tile) IndexAt(x, y int) uint8 {
	if !(image.Point{x, y}.In(t.Bounds())) {
		return 0
	}
	return t.indices[y*t.width+x]
}

// Resolve returns the tile pixels resolved against p along with the
// opacity mask, one entry per pixel row by row. The result is cached until
// p changes version, a different palette is passed, or Invalidate or
// SetMask is called. Callers must not modify either value.
func (t *Tile) Resolve(p *palette.Palette) (*image.NRGBA, []bool) {
	if t.rgba != nil && t.src == p && t.version == p.Version() {
		return t.rgba, t.opaque
	}

	rgba := image.NewNRGBA(t.Bounds())
	opaque := make([]bool, len(t.indices))
	for i, idx := range t.indices {
		c := p.Components(idx)
		copy(rgba.Pix[i*4:i*4+4], c[:])
		if t.mask != nil {
			opaque[i] = t.mask[i]
		} else {
			opaque[i] = c[3] != 0
		}
	}

	t.src, t.version = p, p.Version()
	t.rgba, t.opaque = rgba, opaque
	t.resolves++

	return rgba, opaque
}

// Invalidate discards any cached pixels; the next Resolve rebuilds them.
func (t *Tile) Invalidate() {
	t.src = nil
	t.rgba = nil
	t.opaque = nil
}

// SetMask replaces the alpha-derived opacity mask with m, which must be the
// same size as the tile and only contain 0x00 or 0xff. The tile is left
// unchanged on error.
func (t *Tile) SetMask(m *image.Alpha) error {
	if m == nil {
		return fmt.Errorf("%w: no mask", ErrShapeMismatch)
	}
	b := m.Bounds()
	if b.Dx() != t.width || b.Dy() != t.height {
		return fmt.Errorf("%w: %dx%d mask for %dx%d tile", ErrShapeMismatch, b.Dx(), b.Dy(), t.width, t.height)
	}

	mask := make([]bool, 0, t.width*t.height)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch a := m.AlphaAt(x, y).A; a {
			case 0x00:
				mask = append(mask, false)
			case 0xff:
				mask = append(mask, true)
			default:
				return fmt.Errorf("%w: %#02x at (%d, %d)", ErrInvalidMaskType, a, x, y)
			}
		}
	}

	t.mask = mask
	t.Invalidate()

	return nil
}

// ClearMask reverts to the alpha-derived opacity mask.
func (t *Tile) ClearMask() {
	if t.mask != nil {
		t.mask = nil
		t.Invalidate()
	}
}
