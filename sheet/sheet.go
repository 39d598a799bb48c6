/*
Package sheet implements loading indexed-color images and slicing them into
tiles.

A sheet is an image made of palette indices together with the palette
itself. It is divided into a grid of equally sized tiles, numbered row by row
starting at the top-left. Images are read with the standard image decoders
(PNG, GIF and BMP are registered); anything that is not already indexed is
rejected unless quantization is requested.

Sheets can also be stored in a compact binary form. The encoding starts with
the four bytes "BPS\x01", then the width, height, tile width and tile height
as little-endian 16-bit values and a flags byte. The palette follows as
32 packed 16-bit colors, RRRRGGGG BBBBAAAA, which is lossless because every
palette channel only has 4 bits of precision. Finally the pixel indices are
written row by row, either one per byte or, when every index is below 16,
two per byte with the left pixel in the upper nibble.
*/
package sheet

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"sync"

	"github.com/bodgit/bps/palette"
	"github.com/bodgit/bps/tile"
)

const maxDimension = 1<<16 - 1

var (
	// ErrNotPaletted is returned for an image that does not use indexed
	// color.
	ErrNotPaletted = errors.New("sheet: image is not paletted")
	// ErrTooManyColors is returned for an image with a palette larger
	// than palette.Size.
	ErrTooManyColors = errors.New("sheet: too many colors")
	// ErrInvalidTileSize is returned for a tile size that is not positive
	// or does not fit the image.
	ErrInvalidTileSize = errors.New("sheet: invalid tile size")
	// ErrTileOutOfRange is returned for a tile number outside [0, Len).
	ErrTileOutOfRange = errors.New("sheet: tile index out of range")
	// ErrTooBig is returned when an image cannot be encoded.
	ErrTooBig = errors.New("sheet: image is too big")
)

// Sheet is an indexed image with its palette, divided into tiles. Its
// methods are safe for concurrent use but the tiles it hands out are not:
// a tile must not be blitted from two goroutines at once.
type Sheet struct {
	image   *image.Paletted
	palette *palette.Palette

	mu       sync.Mutex
	tileSize image.Point
	tiles    map[int]*tile.Tile
}

// New returns a sheet of the indices in m resolved with p. The indices are
// copied and the tile size defaults to the whole image.
func New(m *image.Paletted, p *palette.Palette) (*Sheet, error) {
	b := m.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidTileSize)
	}
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		return nil, ErrTooBig
	}

	// Adjust image so that top-left corner is at (0, 0)
	dup := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), p.Colors())
	for y := 0; y < b.Dy(); y++ {
		i := m.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dup.Pix[y*dup.Stride:], m.Pix[i:i+b.Dx()])
	}
	for i, v := range dup.Pix {
		if int(v) >= palette.Size {
			return nil, fmt.Errorf("sheet: pixel %d: %w: %d", i, palette.ErrIndexOutOfRange, v)
		}
	}

	return &Sheet{
		image:    dup,
		palette:  p.Clone(),
		tileSize: dup.Rect.Size(),
		tiles:    make(map[int]*tile.Tile),
	}, nil
}

// Size returns the dimensions of the whole image.
func (s *Sheet) Size() image.Point {
	return s.image.Rect.Size()
}

// TileSize returns the dimensions of each tile.
func (s *Sheet) TileSize() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tileSize
}

// SetTileSize changes the dimensions of each tile. Any tiles handed out
// previously remain valid but are no longer cached.
func (s *Sheet) SetTileSize(width, height int) error {
	size := s.Size()
	if width <= 0 || height <= 0 || width > size.X || height > size.Y {
		return fmt.Errorf("%w: %dx%d for %dx%d image", ErrInvalidTileSize, width, height, size.X, size.Y)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tileSize = image.Pt(width, height)
	clear(s.tiles)
	return nil
}

func (s *Sheet) columns() int {
	return s.image.Rect.Dx() / s.tileSize.X
}

func (s *Sheet) len() int {
	return s.columns() * (s.image.Rect.Dy() / s.tileSize.Y)
}

// Len returns the number of whole tiles in the sheet.
func (s *Sheet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len()
}

// Tile returns tile number i. Repeated calls return the same *tile.Tile.
func (s *Sheet) Tile(i int) (*tile.Tile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= s.len() {
		return nil, fmt.Errorf("%w: %d", ErrTileOutOfRange, i)
	}
	if t, ok := s.tiles[i]; ok {
		return t, nil
	}

	cols := s.columns()
	origin := image.Pt(i%cols*s.tileSize.X, i/cols*s.tileSize.Y)
	t, err := tile.FromPaletted(s.image, image.Rectangle{Min: origin, Max: origin.Add(s.tileSize)})
	if err != nil {
		return nil, err
	}
	s.tiles[i] = t

	return t, nil
}

// Tiles iterates over every tile in order.
func (s *Sheet) Tiles() iter.Seq2[int, *tile.Tile] {
	return func(yield func(int, *tile.Tile) bool) {
		for i := range s.Len() {
			t, err := s.Tile(i)
			if err != nil || !yield(i, t) {
				return
			}
		}
	}
}

// Palette returns a copy of the sheet palette.
func (s *Sheet) Palette() *palette.Palette {
	return s.palette.Clone()
}

// Image returns a copy of the indexed image.
func (s *Sheet) Image() *image.Paletted {
	m := image.NewPaletted(s.image.Rect, s.palette.Colors())
	copy(m.Pix, s.image.Pix)
	return m
}
