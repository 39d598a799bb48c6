package framebuffer

import (
	"errors"
	"fmt"
)

// Default dimensions.
const (
	DefaultWidth  = 640
	DefaultHeight = 360
	DefaultDepth  = 8
)

// ErrInvalidConfig is returned by Validate and New for an unusable Config.
var ErrInvalidConfig = errors.New("framebuffer: invalid config")

// Config is the fixed geometry of a FrameBuffer.
type Config struct {
	Width  int
	Height int
	// Depth is the number of layers.
	Depth int
	// Workers bounds the goroutines used per pixel loop. Zero means
	// GOMAXPROCS, one keeps everything on the calling goroutine.
	Workers int
}

// DefaultConfig returns a 640x360 frame buffer with 8 layers.
func DefaultConfig() Config {
	return Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Depth:  DefaultDepth,
	}
}

// Validate checks that every dimension is positive.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.Depth <= 0:
		return fmt.Errorf("%w: depth %d", ErrInvalidConfig, c.Depth)
	case c.Workers < 0:
		return fmt.Errorf("%w: %d workers", ErrInvalidConfig, c.Workers)
	}
	return nil
}
