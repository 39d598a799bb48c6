package main

import (
	"github.com/bodgit/bps"
	"github.com/bodgit/bps/framebuffer"
	"github.com/bodgit/bps/sheet"
)

const sprites = 16

// demoScene fills the back layer with the sheet's tiles in order, scrolling
// one pixel per frame, and bounces sprites across the remaining layers.
func demoScene(name string, s *sheet.Sheet, fb *framebuffer.FrameBuffer, frame int) bps.Scene {
	size := s.TileSize()
	n := s.Len()

	cols := fb.Width()/size.X + 2
	rows := fb.Height()/size.Y + 2
	shift := frame / size.X

	m := make([][]int, rows)
	for y := range m {
		m[y] = make([]int, cols)
		for x := range m[y] {
			m[y][x] = (y*cols + x + shift) % n
		}
	}

	sc := bps.Scene{
		Sheet:   name,
		Map:     m,
		ScrollX: frame % size.X,
	}

	if fb.Depth() < 2 {
		return sc
	}

	w, h := fb.Width()+size.X, fb.Height()+size.Y
	for i := 0; i < sprites; i++ {
		sc.Sprites = append(sc.Sprites, bps.Sprite{
			Layer: 1 + i%(fb.Depth()-1),
			Tile:  i % n,
			X:     bounce(i*37+frame*2, w) - size.X,
			Y:     bounce(i*53+frame*3, h) - size.Y,
		})
	}

	return sc
}

// bounce folds v back and forth across [0, n).
func bounce(v, n int) int {
	v %= 2 * n
	if v >= n {
		return 2*n - 1 - v
	}
	return v
}
