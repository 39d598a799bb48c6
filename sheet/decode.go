package sheet

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder
	"io"

	"github.com/bodgit/bps/palette"
	"github.com/ericpauley/go-quantize/quantize"
	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
)

type options struct {
	quantize bool
	tileSize image.Point
}

// Option configures Decode.
type Option func(*options)

// WithQuantize reduces images that are not indexed, or that have too many
// colors, to at most palette.Size colors using median cut instead of
// rejecting them.
func WithQuantize() Option {
	return func(o *options) {
		o.quantize = true
	}
}

// WithTileSize sets the tile size of the decoded sheet.
func WithTileSize(width, height int) Option {
	return func(o *options) {
		o.tileSize = image.Pt(width, height)
	}
}

func reduce(m image.Image) *image.Paletted {
	b := m.Bounds()
	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, palette.Size), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)
	return pm
}

// FromImage returns a sheet built from m, which should be an indexed image.
func FromImage(m image.Image, opts ...Option) (*Sheet, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}

	switch {
	case pm == nil && !o.quantize:
		return nil, ErrNotPaletted
	case pm != nil && len(pm.Palette) > palette.Size && !o.quantize:
		return nil, fmt.Errorf("%w: %d", ErrTooManyColors, len(pm.Palette))
	case pm == nil || len(pm.Palette) > palette.Size:
		pm = reduce(m)
	}

	p := palette.New()
	for i, c := range pm.Palette {
		if err := p.SetColor(i, c); err != nil {
			return nil, err
		}
	}

	s, err := New(pm, p)
	if err != nil {
		return nil, err
	}

	if o.tileSize != (image.Point{}) {
		if err := s.SetTileSize(o.tileSize.X, o.tileSize.Y); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Decode reads an image from r and returns it as a sheet. Palette entries
// beyond those defined by the image keep their default colors.
func Decode(r io.Reader, opts ...Option) (*Sheet, error) {
	m, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(m, opts...)
}
