package sheet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"

	"github.com/bodgit/bps/palette"
)

var (
	// ErrNotEnough is returned when the binary form is truncated.
	ErrNotEnough = errors.New("sheet: not enough image data")
	// ErrTooMuch is returned when the binary form has trailing data.
	ErrTooMuch = errors.New("sheet: too much image data")
	// ErrBadMagic is returned when the binary form has the wrong header.
	ErrBadMagic = errors.New("sheet: invalid format")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func upperNibble(b byte) byte {
	return b & 0xf0
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}

type decoder struct {
	r io.Reader

	width, height int
	tileSize      image.Point
	flags         byte

	palette *palette.Palette
	image   *image.Paletted

	tmp [colorBytes]byte
}

func (d *decoder) readHeader() error {
	if err := readFull(d.r, d.tmp[:headerBytes]); err != nil {
		return err
	}
	if string(d.tmp[:len(magic)]) != magic {
		return ErrBadMagic
	}

	var header [4]uint16
	if err := binary.Read(bytes.NewReader(d.tmp[len(magic):headerBytes-1]), binary.LittleEndian, header[:]); err != nil {
		return err
	}
	d.width, d.height = int(header[0]), int(header[1])
	d.tileSize = image.Pt(int(header[2]), int(header[3]))
	d.flags = d.tmp[headerBytes-1]

	if d.width == 0 || d.height == 0 {
		return ErrBadMagic
	}

	return nil
}

func (d *decoder) readPalette() error {
	if err := readFull(d.r, d.tmp[:colorBytes]); err != nil {
		return err
	}

	d.palette = palette.New()
	for i := range palette.Size {
		// Color is packed as RRRRGGGG BBBBAAAA
		b0, b1 := d.tmp[i*2], d.tmp[i*2+1]
		if err := d.palette.Set(i,
			int(upperNibble(b0)),
			int(lowerNibble(b0)<<4),
			int(upperNibble(b1)),
			int(lowerNibble(b1)<<4),
		); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readPixels() error {
	d.image = image.NewPaletted(image.Rect(0, 0, d.width, d.height), d.palette.Colors())

	if d.flags&flagPacked == 0 {
		return readFull(d.r, d.image.Pix)
	}

	pix := d.image.Pix
	tmp := make([]byte, (len(pix)+1)>>1)
	if err := readFull(d.r, tmp); err != nil {
		return err
	}
	for i, b := range tmp {
		pix[i<<1] = upperNibble(b) >> 4
		if i<<1+1 < len(pix) {
			pix[i<<1+1] = lowerNibble(b)
		}
	}
	return nil
}

func (d *decoder) decode(r io.Reader) error {
	d.r = r

	for _, fn := range []func() error{d.readHeader, d.readPalette, d.readPixels} {
		if err := fn(); err != nil {
			if err != io.ErrUnexpectedEOF {
				return err
			}
			return ErrNotEnough
		}
	}

	if n, err := r.Read(d.tmp[:1]); n != 0 || (err != io.EOF && err != io.ErrUnexpectedEOF) {
		if err != nil {
			return err
		}
		return ErrTooMuch
	}

	return nil
}

// DecodeBinary reads a sheet in binary form from r.
func DecodeBinary(r io.Reader) (*Sheet, error) {
	var d decoder
	if err := d.decode(r); err != nil {
		return nil, err
	}

	s, err := New(d.image, d.palette)
	if err != nil {
		return nil, err
	}
	if err := s.SetTileSize(d.tileSize.X, d.tileSize.Y); err != nil {
		return nil, err
	}

	return s, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Sheet) UnmarshalBinary(b []byte) error {
	n, err := DecodeBinary(bytes.NewReader(b))
	if err != nil {
		return err
	}
	*s = *n
	return nil
}
