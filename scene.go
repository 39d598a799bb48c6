package bps

import (
	"fmt"

	"github.com/bodgit/bps/framebuffer"
	"github.com/bodgit/bps/layer"
	"github.com/bodgit/bps/tile"
)

// NoTile marks an empty cell in a Scene map.
const NoTile = -1

// Sprite is a single tile placed on a layer at a pixel position.
type Sprite struct {
	Layer int
	Tile  int
	X, Y  int
}

// Scene describes what to draw from one sheet: an optional grid of tiles
// filling a layer, scrolled by a pixel offset, and any number of sprites.
type Scene struct {
	Sheet string

	// Map holds tile numbers row by row, NoTile leaves a cell empty
	Map      [][]int
	MapLayer int
	ScrollX  int
	ScrollY  int

	Sprites []Sprite
}

type blit struct {
	layer *layer.Layer
	tile  *tile.Tile
	x, y  int
}

// Draw blits the scene onto the layers of fb using fb's current palette.
// Every tile and layer reference is checked first so nothing is drawn if
// the scene is invalid. Draw may be called from several goroutines as long
// as each uses its own frame buffer.
func (b *BPS) Draw(fb *framebuffer.FrameBuffer, sc Scene) error {
	s, err := b.Sheet(sc.Sheet)
	if err != nil {
		return err
	}

	b.drawMu.Lock()
	defer b.drawMu.Unlock()

	size := s.TileSize()

	var ops []blit

	if len(sc.Map) > 0 {
		l, err := fb.Layer(sc.MapLayer)
		if err != nil {
			return err
		}
		for row, cells := range sc.Map {
			for col, n := range cells {
				if n == NoTile {
					continue
				}
				t, err := s.Tile(n)
				if err != nil {
					return fmt.Errorf("bps: map cell (%d, %d): %w", col, row, err)
				}
				ops = append(ops, blit{l, t, col*size.X - sc.ScrollX, row*size.Y - sc.ScrollY})
			}
		}
	}

	for i, sp := range sc.Sprites {
		l, err := fb.Layer(sp.Layer)
		if err != nil {
			return fmt.Errorf("bps: sprite %d: %w", i, err)
		}
		t, err := s.Tile(sp.Tile)
		if err != nil {
			return fmt.Errorf("bps: sprite %d: %w", i, err)
		}
		ops = append(ops, blit{l, t, sp.X, sp.Y})
	}

	for _, op := range ops {
		op.layer.Blit(op.tile, op.x, op.y)
	}

	return nil
}
