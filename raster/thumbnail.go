package raster

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnail returns a copy of m scaled down to fit within max by max pixels,
// preserving the aspect ratio. Images that already fit are copied unscaled.
func Thumbnail(m image.Image, max uint) *RGB {
	b := m.Bounds()
	if uint(b.Dx()) <= max && uint(b.Dy()) <= max {
		p := NewRGB(b.Sub(b.Min))
		src := FromImage(m)
		for y := 0; y < b.Dy(); y++ {
			copy(p.Row(y), src.Row(b.Min.Y+y))
		}
		return p
	}
	return FromImage(resize.Thumbnail(max, max, m, resize.Lanczos3))
}
