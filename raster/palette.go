package raster

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
)

// MaxColors is the largest palette a paletted image can use
const MaxColors = 256

// Quantize reduces m to a paletted image of no more than colors colors using
// median cut. The returned image always has its top-left corner at (0, 0).
func Quantize(m image.Image, colors int) *image.Paletted {
	if colors <= 0 || colors > MaxColors {
		colors = MaxColors
	}

	b := m.Bounds()
	r := b.Sub(b.Min)

	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, colors), m)
	if len(p) == 0 {
		p = color.Palette{color.Black}
	}

	pm := image.NewPaletted(r, p)
	draw.Draw(pm, r, m, b.Min, draw.Src)

	return pm
}
