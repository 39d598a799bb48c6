/*
Package palette implements the fixed-size indexed color table used to
resolve tiles into RGBA pixels.

A palette holds exactly 32 colors. Every channel, alpha included, is stored
with 4 bits of precision: the high nibble of each value is kept and mirrored
into the low nibble, so 0x34 is stored as 0x33. Each successful mutation
bumps a version counter which downstream caches compare against.
*/
package palette

import (
	"errors"
	"fmt"
	"image/color"
)

// Size is the number of entries in every palette.
const Size = 32

var (
	// ErrIndexOutOfRange is returned for an index outside [0, Size).
	ErrIndexOutOfRange = errors.New("palette: index out of range")
	// ErrInvalidColor is returned when a color does not have exactly four
	// components each within [0, 255].
	ErrInvalidColor = errors.New("palette: invalid color")
)

// Palette is a table of Size quantized colors plus a version counter. It
// is not safe for concurrent mutation; a single writer is assumed.
type Palette struct {
	colors  [Size][4]uint8
	version uint64
}

// Clamp quantizes v to one of 16 levels.
func Clamp(v uint8) uint8 {
	n := v & 0xf0
	return n | n>>4
}

// New returns a palette populated with the default colors. The version
// starts at zero.
func New() *Palette {
	p := new(Palette)
	for i, c := range defaultColors {
		p.colors[i] = [4]uint8{Clamp(c.R), Clamp(c.G), Clamp(c.B), Clamp(c.A)}
	}
	return p
}

// Len returns the number of entries, always Size.
func (p *Palette) Len() int {
	return Size
}

// Version returns the number of successful mutations since creation.
func (p *Palette) Version() uint64 {
	return p.version
}

// Get returns the color stored at index.
func (p *Palette) Get(index int) (color.NRGBA, error) {
	if index < 0 || index >= Size {
		return color.NRGBA{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c := p.colors[index]
	return color.NRGBA{c[0], c[1], c[2], c[3]}, nil
}

// Set stores the color given as red, green, blue and alpha components at
// index, quantizing each one, and increments the version. On error the
// palette is left untouched.
func (p *Palette) Set(index int, rgba ...int) error {
	if index < 0 || index >= Size {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if len(rgba) != 4 {
		return fmt.Errorf("%w: expected 4 components, got %d", ErrInvalidColor, len(rgba))
	}

	var c [4]uint8
	for i, v := range rgba {
		if v < 0 || v > 0xff {
			return fmt.Errorf("%w: component %d is %d", ErrInvalidColor, i, v)
		}
		c[i] = Clamp(uint8(v))
	}

	p.colors[index] = c
	p.version++

	return nil
}

// SetColor is like Set but takes any color.Color, converted to
// non-premultiplied RGBA first.
func (p *Palette) SetColor(index int, c color.Color) error {
	if c == nil {
		return ErrInvalidColor
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return p.Set(index, int(n.R), int(n.G), int(n.B), int(n.A))
}

// Equal reports whether both palettes hold the same colors. Versions are
// not compared.
func (p *Palette) Equal(o *Palette) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.colors == o.colors
}

// Clone returns a new palette with the same colors and a zero version.
func (p *Palette) Clone() *Palette {
	return &Palette{colors: p.colors}
}

// Colors returns the palette as a color.Palette suitable for
// image.Paletted.
func (p *Palette) Colors() color.Palette {
	cp := make(color.Palette, Size)
	for i, c := range p.colors {
		cp[i] = color.NRGBA{c[0], c[1], c[2], c[3]}
	}
	return cp
}

// Components returns the raw components stored at index. Unlike Get it
// does not return an error and panics if index is not below Size.
func (p *Palette) Components(index uint8) [4]uint8 {
	return p.colors[index]
}
