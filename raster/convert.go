package raster

import (
	"image"
	"image/color"
)

// FromImage returns m as an RGB raster. If m is already an *RGB it is returned
// as is, otherwise a converted copy with the same bounds is returned. Any
// alpha channel is discarded.
func FromImage(m image.Image) *RGB {
	if p, ok := m.(*RGB); ok {
		return p
	}

	b := m.Bounds()
	p := NewRGB(b)

	switch src := m.(type) {
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.Row(y)
			i := src.PixOffset(b.Min.X, y)
			for x := 0; x < b.Dx(); x++ {
				copy(row[x*Channels:x*Channels+Channels], src.Pix[i+x*4:i+x*4+Channels])
			}
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.Row(y)
			i := src.PixOffset(b.Min.X, y)
			for x := 0; x < b.Dx(); x++ {
				s := src.Pix[i+x*4 : i+x*4+4 : i+x*4+4]
				// Composite onto black, the same as a premultiplied RGBA
				a := uint32(s[3])
				row[x*Channels+0] = uint8(uint32(s[0]) * a / 0xff)
				row[x*Channels+1] = uint8(uint32(s[1]) * a / 0xff)
				row[x*Channels+2] = uint8(uint32(s[2]) * a / 0xff)
			}
		}
	case *image.YCbCr:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.Row(y)
			for x := b.Min.X; x < b.Max.X; x++ {
				yi := src.YOffset(x, y)
				ci := src.COffset(x, y)
				r, g, bb := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				j := (x - b.Min.X) * Channels
				row[j+0], row[j+1], row[j+2] = r, g, bb
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.Row(y)
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.RGBAModel.Convert(m.At(x, y)).(color.RGBA)
				j := (x - b.Min.X) * Channels
				row[j+0], row[j+1], row[j+2] = c.R, c.G, c.B
			}
		}
	}

	return p
}
