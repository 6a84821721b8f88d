package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"

	"github.com/klauspost/compress/zstd"
)

const headerSize = 8

var (
	errShortHeader = errors.New("raster: not enough header data")
	errBadPayload  = errors.New("raster: pixel payload does not match dimensions")
)

// MarshalBinary encodes the raster as its width and height followed by the
// zstd compressed pixels. The origin of the raster is not preserved.
func (p *RGB) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)

	w, h := p.Rect.Dx(), p.Rect.Dy()
	if err := binary.Write(b, binary.LittleEndian, [2]uint32{uint32(w), uint32(h)}); err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(b)
	if err != nil {
		return nil, err
	}
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		if _, err := enc.Write(p.Row(y)); err != nil {
			enc.Close()
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// UnmarshalBinary decodes a raster previously encoded with MarshalBinary.
func (p *RGB) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize {
		return errShortHeader
	}

	var size [2]uint32
	if err := binary.Read(bytes.NewReader(b[:headerSize]), binary.LittleEndian, &size); err != nil {
		return err
	}

	dec, err := zstd.NewReader(bytes.NewReader(b[headerSize:]))
	if err != nil {
		return err
	}
	defer dec.Close()

	pix, err := io.ReadAll(dec)
	if err != nil {
		return err
	}

	w, h := int(size[0]), int(size[1])
	if len(pix) != w*h*Channels {
		return errBadPayload
	}

	p.Pix = pix
	p.Stride = w * Channels
	p.Rect = image.Rect(0, 0, w, h)

	return nil
}
