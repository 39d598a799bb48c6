/*
Package framebuffer implements a fixed stack of layers and the compositing
step that flattens them into one frame.

Layer 0 is the furthest back. Composing walks the layers from back to front
and copies every pixel whose alpha is non-zero over what is already there,
so each output pixel comes from the front-most layer that is not
transparent at that position. There is no blending.

The composed frame is an *image.NRGBA whose Pix holds rows top first.
*/
package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"iter"

	"github.com/bodgit/bps/internal/parallel"
	"github.com/bodgit/bps/layer"
	"github.com/bodgit/bps/palette"
	"go.uber.org/zap"
)

// ErrIndexOutOfRange is returned for a layer index outside [0, depth).
var ErrIndexOutOfRange = errors.New("framebuffer: layer index out of range")

// FrameBuffer owns a stack of layers and the composed output.
type FrameBuffer struct {
	cfg    Config
	layers []*layer.Layer
	output *image.NRGBA
	logger *zap.Logger
}

// New returns a FrameBuffer with cfg.Depth transparent layers, all
// resolving tiles against p.
func New(cfg Config, p *palette.Palette, logger *zap.Logger) (*FrameBuffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no palette", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fb := &FrameBuffer{
		cfg:    cfg,
		layers: make([]*layer.Layer, cfg.Depth),
		output: image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
		logger: logger,
	}
	for i := range fb.layers {
		fb.layers[i] = layer.New(cfg.Width, cfg.Height, p,
			layer.WithLogger(logger.With(zap.Int("layer", i))),
			layer.WithWorkers(cfg.Workers))
	}

	logger.Debug("created frame buffer",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("depth", cfg.Depth),
		zap.Int("workers", parallel.Workers(cfg.Workers)))

	return fb, nil
}

// Width returns the width of every layer and the output.
func (fb *FrameBuffer) Width() int {
	return fb.cfg.Width
}

// Height returns the height of every layer and the output.
func (fb *FrameBuffer) Height() int {
	return fb.cfg.Height
}

// Depth returns the number of layers.
func (fb *FrameBuffer) Depth() int {
	return len(fb.layers)
}

// Layer returns the layer at index i.
func (fb *FrameBuffer) Layer(i int) (*layer.Layer, error) {
	if i < 0 || i >= len(fb.layers) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return fb.layers[i], nil
}

// Layers iterates over every layer from back to front. The sequence can be
// ranged over any number of times.
func (fb *FrameBuffer) Layers() iter.Seq2[int, *layer.Layer] {
	return func(yield func(int, *layer.Layer) bool) {
		for i, l := range fb.layers {
			if !yield(i, l) {
				return
			}
		}
	}
}

// SetPalette switches every layer to p.
func (fb *FrameBuffer) SetPalette(p *palette.Palette) {
	for _, l := range fb.layers {
		l.SetPalette(p)
	}
}

// Clear makes every layer transparent.
func (fb *FrameBuffer) Clear() {
	for _, l := range fb.layers {
		l.Clear()
	}
}

// Compose flattens the layers and returns the result. The returned image
// is owned by the FrameBuffer and is overwritten by the next call.
func (fb *FrameBuffer) Compose() *image.NRGBA {
	stride := fb.output.Stride
	parallel.Rows(0, fb.cfg.Height, fb.cfg.Workers, func(y0, y1 int) {
		clear(fb.output.Pix[y0*stride : y1*stride])
		for _, l := range fb.layers {
			l.DrawRows(fb.output, y0, y1)
		}
	})
	return fb.output
}
