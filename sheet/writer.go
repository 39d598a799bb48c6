package sheet

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bodgit/bps/palette"
)

const (
	magic       = "BPS\x01"
	flagPacked  = 1 << 0
	headerBytes = len(magic) + 4*2 + 1
	colorBytes  = palette.Size * 2
)

type encoder struct {
	w io.Writer
}

func packable(pix []uint8) bool {
	for _, v := range pix {
		if v > 0x0f {
			return false
		}
	}
	return true
}

func (e *encoder) encode(s *Sheet) error {
	size, tileSize := s.Size(), s.TileSize()
	packed := packable(s.image.Pix)

	var flags byte
	if packed {
		flags |= flagPacked
	}

	// Write out header
	if _, err := io.WriteString(e.w, magic); err != nil {
		return err
	}
	header := []uint16{uint16(size.X), uint16(size.Y), uint16(tileSize.X), uint16(tileSize.Y)}
	if err := binary.Write(e.w, binary.LittleEndian, header); err != nil {
		return err
	}
	if _, err := e.w.Write([]byte{flags}); err != nil {
		return err
	}

	// Write out palette, each channel only has 4 bits of precision
	var tmp [colorBytes]byte
	for i := range palette.Size {
		c := s.palette.Components(uint8(i))
		tmp[i*2+0] = upperNibble(c[0]) | c[1]>>4
		tmp[i*2+1] = upperNibble(c[2]) | c[3]>>4
	}
	if _, err := e.w.Write(tmp[:]); err != nil {
		return err
	}

	if !packed {
		_, err := e.w.Write(s.image.Pix)
		return err
	}

	// Write out pixel information, two pixels per byte
	pix := s.image.Pix
	out := make([]byte, (len(pix)+1)>>1)
	for i := 0; i < len(pix); i += 2 {
		b := pix[i] & 0x0f << 4
		if i+1 < len(pix) {
			b |= pix[i+1] & 0x0f
		}
		out[i>>1] = b
	}
	_, err := e.w.Write(out)

	return err
}

// Encode writes the sheet s to w in binary form.
func Encode(w io.Writer, s *Sheet) error {
	e := encoder{w: w}
	return e.encode(s)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Sheet) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := Encode(b, s); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
