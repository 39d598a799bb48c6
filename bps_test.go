package bps

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bodgit/bps/framebuffer"
	"github.com/bodgit/bps/palette"
	"github.com/bodgit/bps/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testPalette = color.Palette{
	color.NRGBA{0x00, 0x00, 0x00, 0x00},
	color.NRGBA{0xff, 0x00, 0x00, 0xff},
	color.NRGBA{0x00, 0xff, 0x00, 0xff},
	color.NRGBA{0x00, 0x00, 0xff, 0xff},
}

// writeSheet writes a 16x8 PNG made of two 8x8 tiles, the first red and
// the second green with a transparent top-left pixel.
func writeSheet(t *testing.T, file string) {
	t.Helper()

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
	m.SetColorIndex(8, 0, 0)

	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

// writeSmall writes a 4x4 indexed PNG, too small for an 8x8 tile.
func writeSmall(t *testing.T, file string) {
	t.Helper()

	m := image.NewPaletted(image.Rect(0, 0, 4, 4), testPalette)
	for i := range m.Pix {
		m.Pix[i] = 3
	}
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func writeTrueColor(t *testing.T, file string) {
	t.Helper()

	m := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range m.Pix {
		m.Pix[i] = uint8(i * 5)
	}
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func newTestBPS(t *testing.T) *BPS {
	t.Helper()

	b, err := New(filepath.Join(t.TempDir(), "bps.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return b
}

func TestAddAndSheet(t *testing.T) {
	b := newTestBPS(t)
	file := filepath.Join(t.TempDir(), "tiles.png")
	writeSheet(t, file)

	require.NoError(t, b.Add("tiles", file, sheet.WithTileSize(8, 8)))

	s, err := b.Sheet("tiles")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	again, err := b.Sheet("tiles")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 1, b.Loaded())

	_, err = b.Sheet("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnset(t *testing.T) {
	b := newTestBPS(t)
	file := filepath.Join(t.TempDir(), "tiles.png")
	writeSheet(t, file)
	require.NoError(t, b.Add("tiles", file))

	assert.ErrorIs(t, b.Unset("tiles"), ErrNotLoaded)

	s, err := b.Sheet("tiles")
	require.NoError(t, err)
	require.NoError(t, b.Unset("tiles"))
	assert.Equal(t, 0, b.Loaded())

	reloaded, err := b.Sheet("tiles")
	require.NoError(t, err)
	assert.NotSame(t, s, reloaded)
}

func TestImport(t *testing.T) {
	b := newTestBPS(t)
	dir := t.TempDir()
	writeSheet(t, filepath.Join(dir, "a.png"))
	writeSheet(t, filepath.Join(dir, "sub", "b.png"))
	writeSheet(t, filepath.Join(dir, ".hidden", "c.png"))
	writeTrueColor(t, filepath.Join(dir, "photo.png"))
	writeSmall(t, filepath.Join(dir, "small.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	// The 4x4 image cannot hold an 8x8 tile and is skipped
	require.NoError(t, b.Import(dir, sheet.WithTileSize(8, 8)))

	names, err := b.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "sub/b"}, names)

	// Both names share one stored image
	n, err := countImages(b.bank)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Quantizing picks up the true color image too, and without a tile
	// size the small image is a single tile
	require.NoError(t, b.Import(dir, sheet.WithQuantize()))
	names, err = b.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "photo", "small", "sub/b"}, names)
}

func TestImportSingleFile(t *testing.T) {
	b := newTestBPS(t)
	file := filepath.Join(t.TempDir(), "single.png")
	writeSheet(t, file)

	require.NoError(t, b.Import(file))

	names, err := b.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, names)
}

func TestImportCorrupt(t *testing.T) {
	b := newTestBPS(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644))

	assert.Error(t, b.Import(dir))
}

func TestDraw(t *testing.T) {
	b := newTestBPS(t)
	file := filepath.Join(t.TempDir(), "tiles.png")
	writeSheet(t, file)
	require.NoError(t, b.Add("tiles", file, sheet.WithTileSize(8, 8)))

	s, err := b.Sheet("tiles")
	require.NoError(t, err)

	fb, err := framebuffer.New(framebuffer.Config{Width: 16, Height: 16, Depth: 2}, s.Palette(), zaptest.NewLogger(t))
	require.NoError(t, err)

	sc := Scene{
		Sheet:   "tiles",
		Map:     [][]int{{0, NoTile}, {0, 0}},
		ScrollX: 4,
		Sprites: []Sprite{{Layer: 1, Tile: 1, X: 12, Y: 0}},
	}
	require.NoError(t, b.Draw(fb, sc))

	m := fb.Compose()
	red := color.NRGBA{0xff, 0x00, 0x00, 0xff}
	green := color.NRGBA{0x00, 0xff, 0x00, 0xff}

	assert.Equal(t, red, m.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{}, m.NRGBAAt(4, 0))
	assert.Equal(t, red, m.NRGBAAt(11, 15))
	assert.Equal(t, color.NRGBA{}, m.NRGBAAt(12, 8))
	assert.Equal(t, color.NRGBA{}, m.NRGBAAt(12, 0))
	assert.Equal(t, green, m.NRGBAAt(13, 0))
	assert.Equal(t, green, m.NRGBAAt(15, 7))
}

func TestDrawConcurrent(t *testing.T) {
	b := newTestBPS(t)
	file := filepath.Join(t.TempDir(), "tiles.png")
	writeSheet(t, file)
	require.NoError(t, b.Add("tiles", file, sheet.WithTileSize(8, 8)))

	s, err := b.Sheet("tiles")
	require.NoError(t, err)

	sc := Scene{
		Sheet:   "tiles",
		Map:     [][]int{{0, 1}, {1, 0}},
		Sprites: []Sprite{{Layer: 1, Tile: 1, X: 4, Y: 4}},
	}

	want, err := framebuffer.New(framebuffer.Config{Width: 16, Height: 16, Depth: 2}, s.Palette(), nil)
	require.NoError(t, err)
	require.NoError(t, b.Draw(want, sc))
	expected := append([]uint8(nil), want.Compose().Pix...)

	// Drop the cache so the goroutines race to build the tiles
	require.NoError(t, b.Unset("tiles"))

	const workers = 4

	var wg sync.WaitGroup
	results := make([][]uint8, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fb, err := framebuffer.New(framebuffer.Config{Width: 16, Height: 16, Depth: 2}, s.Palette(), nil)
			if err != nil {
				errs[i] = err
				return
			}
			for frame := 0; frame < 20; frame++ {
				fb.Clear()
				if err := b.Draw(fb, sc); err != nil {
					errs[i] = err
					return
				}
			}
			results[i] = append([]uint8(nil), fb.Compose().Pix...)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, expected, results[i], "worker %d", i)
	}
	assert.Equal(t, 1, b.Loaded())
}

func TestDrawInvalid(t *testing.T) {
	b := newTestBPS(t)
	file := filepath.Join(t.TempDir(), "tiles.png")
	writeSheet(t, file)
	require.NoError(t, b.Add("tiles", file, sheet.WithTileSize(8, 8)))

	fb, err := framebuffer.New(framebuffer.Config{Width: 16, Height: 16, Depth: 2}, palette.New(), nil)
	require.NoError(t, err)

	tables := []struct {
		name string
		sc   Scene
		err  error
	}{
		{"missing sheet", Scene{Sheet: "nope"}, ErrNotFound},
		{"bad map tile", Scene{Sheet: "tiles", Map: [][]int{{0, 9}}}, sheet.ErrTileOutOfRange},
		{"bad map layer", Scene{Sheet: "tiles", Map: [][]int{{0}}, MapLayer: 2}, framebuffer.ErrIndexOutOfRange},
		{"bad sprite layer", Scene{Sheet: "tiles", Sprites: []Sprite{{Layer: 5}}}, framebuffer.ErrIndexOutOfRange},
		{"bad sprite tile", Scene{Sheet: "tiles", Map: [][]int{{0}}, Sprites: []Sprite{{Tile: 2}}}, sheet.ErrTileOutOfRange},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.ErrorIs(t, b.Draw(fb, table.sc), table.err)
			assert.Equal(t, make([]uint8, 16*16*4), fb.Compose().Pix)
		})
	}
}
