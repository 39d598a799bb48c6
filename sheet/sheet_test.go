package sheet

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"sync"
	"testing"

	"github.com/bodgit/bps/palette"
	"github.com/bodgit/bps/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPalette = color.Palette{
	color.NRGBA{0x00, 0x00, 0x00, 0x00},
	color.NRGBA{0xff, 0x00, 0x00, 0xff},
	color.NRGBA{0x00, 0xff, 0x00, 0xff},
	color.NRGBA{0x12, 0x34, 0x56, 0xff},
}

// testImage returns a 16x8 image split into 8x8 halves using index 1 on
// the left and 2 on the right, with index 3 in the top-left corner.
func testImage() *image.Paletted {
	m := image.NewPaletted(image.Rect(0, 0, 16, 8), testPalette)
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				m.SetColorIndex(x, y, 1)
			} else {
				m.SetColorIndex(x, y, 2)
			}
		}
	}
	m.SetColorIndex(0, 0, 3)
	return m
}

func TestDecodePNG(t *testing.T) {
	b := new(bytes.Buffer)
	require.NoError(t, png.Encode(b, testImage()))

	s, err := Decode(b, WithTileSize(8, 8))
	require.NoError(t, err)

	assert.Equal(t, image.Pt(16, 8), s.Size())
	assert.Equal(t, image.Pt(8, 8), s.TileSize())
	assert.Equal(t, 2, s.Len())

	p := s.Palette()
	c, err := p.Get(3)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x11, 0x33, 0x55, 0xff}, c)

	// Entries not in the image keep their defaults
	c, err = p.Get(palette.White)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, c)

	t0, err := s.Tile(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), t0.IndexAt(0, 0))
	assert.Equal(t, uint8(1), t0.IndexAt(7, 7))

	t1, err := s.Tile(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), t1.IndexAt(0, 0))
}

func TestDecodeGIF(t *testing.T) {
	b := new(bytes.Buffer)
	require.NoError(t, gif.Encode(b, testImage(), nil))

	s, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, image.Pt(16, 8), s.TileSize())
}

func TestDecodeNotPaletted(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 64), uint8(y * 64), 0x80, 0xff})
		}
	}
	b := new(bytes.Buffer)
	require.NoError(t, png.Encode(b, m))
	data := b.Bytes()

	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNotPaletted)

	s, err := Decode(bytes.NewReader(data), WithQuantize())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 4), s.Size())
	for _, v := range s.Image().Pix {
		assert.Less(t, int(v), palette.Size)
	}
}

func TestFromImageTooManyColors(t *testing.T) {
	cp := make(color.Palette, palette.Size+1)
	for i := range cp {
		cp[i] = color.NRGBA{uint8(i * 7), uint8(i * 3), uint8(i), 0xff}
	}
	m := image.NewPaletted(image.Rect(0, 0, 8, 8), cp)
	for i := range m.Pix {
		m.Pix[i] = uint8(i % len(cp))
	}

	_, err := FromImage(m)
	assert.ErrorIs(t, err, ErrTooManyColors)

	s, err := FromImage(m, WithQuantize())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 8), s.Size())
}

func TestFromImageOffsetBounds(t *testing.T) {
	m := image.NewPaletted(image.Rect(10, 20, 14, 22), testPalette)
	m.SetColorIndex(10, 20, 2)

	s, err := FromImage(m)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), s.Image().Rect)
	assert.Equal(t, uint8(2), s.Image().ColorIndexAt(0, 0))
}

func TestSetTileSize(t *testing.T) {
	s, err := FromImage(testImage())
	require.NoError(t, err)

	t0, err := s.Tile(0)
	require.NoError(t, err)
	assert.Equal(t, 16, t0.Width())

	tables := []struct {
		w, h int
		ok   bool
		n    int
	}{
		{4, 4, true, 8},
		{5, 3, true, 6},
		{16, 8, true, 1},
		{0, 8, false, 0},
		{17, 8, false, 0},
		{8, -1, false, 0},
	}

	for _, table := range tables {
		err := s.SetTileSize(table.w, table.h)
		if !table.ok {
			assert.ErrorIs(t, err, ErrInvalidTileSize)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, table.n, s.Len())
	}
}

func TestTileCache(t *testing.T) {
	s, err := FromImage(testImage(), WithTileSize(8, 8))
	require.NoError(t, err)

	a, err := s.Tile(1)
	require.NoError(t, err)
	b, err := s.Tile(1)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = s.Tile(2)
	assert.ErrorIs(t, err, ErrTileOutOfRange)
	_, err = s.Tile(-1)
	assert.ErrorIs(t, err, ErrTileOutOfRange)

	require.NoError(t, s.SetTileSize(8, 8))
	c, err := s.Tile(1)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestTileConcurrent(t *testing.T) {
	s, err := FromImage(testImage(), WithTileSize(4, 4))
	require.NoError(t, err)

	const workers = 8

	var wg sync.WaitGroup
	got := make([][]*tile.Tile, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := range s.Len() {
				tl, err := s.Tile(n)
				if err != nil {
					return
				}
				got[i] = append(got[i], tl)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.Len(t, got[i], s.Len())
		for n, tl := range got[i] {
			assert.Same(t, got[0][n], tl)
		}
	}
}

func TestTiles(t *testing.T) {
	s, err := FromImage(testImage(), WithTileSize(4, 4))
	require.NoError(t, err)

	for pass := 0; pass < 2; pass++ {
		n := 0
		for i, tl := range s.Tiles() {
			want, err := s.Tile(i)
			require.NoError(t, err)
			assert.Same(t, want, tl)
			n++
		}
		assert.Equal(t, s.Len(), n)
	}
}

func TestPaletteIsCopy(t *testing.T) {
	s, err := FromImage(testImage())
	require.NoError(t, err)

	p := s.Palette()
	require.NoError(t, p.Set(1, 0, 0, 0, 0))
	assert.False(t, p.Equal(s.Palette()))
}
