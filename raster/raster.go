/*
Package raster implements a packed three channel RGB raster.

Pixels are stored as consecutive R, G, B bytes with no alpha channel and no
padding between rows beyond what Stride describes. This matches the rgb24
layout produced and consumed by ffmpeg so video frames can be read straight
into a raster without conversion. RGB implements image.Image and draw.Image
so it can be handed to the standard encoders and to image/draw.
*/
package raster

import (
	"image"
	"image/color"
)

// Channels is the number of bytes used per pixel
const Channels = 3

// RGB is an in-memory image whose At method returns color.RGBA values with
// the alpha fixed at 0xff.
type RGB struct {
	// Pix holds the image's pixels, in R, G, B order. The pixel at
	// (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent
	// pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// NewRGB returns a new RGB raster with the given bounds.
func NewRGB(r image.Rectangle) *RGB {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &RGB{
		Pix:    make([]uint8, Channels*w*h),
		Stride: Channels * w,
		Rect:   r,
	}
}

func (p *RGB) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *RGB) Bounds() image.Rectangle {
	return p.Rect
}

func (p *RGB) Opaque() bool {
	return true
}

func (p *RGB) At(x, y int) color.Color {
	return p.RGBAt(x, y)
}

// RGBAt returns the color of the pixel at (x, y) as color.RGBA.
func (p *RGB) RGBAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+Channels : i+Channels]
	return color.RGBA{s[0], s[1], s[2], 0xff}
}

// PixOffset returns the index of the first element of Pix that corresponds
// to the pixel at (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*Channels
}

func (p *RGB) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	c1 := color.RGBAModel.Convert(c).(color.RGBA)
	p.SetRGB(x, y, c1.R, c1.G, c1.B)
}

// SetRGB sets the pixel at (x, y) to the given components.
func (p *RGB) SetRGB(x, y int, r, g, b uint8) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+Channels : i+Channels]
	s[0], s[1], s[2] = r, g, b
}

// Row returns the pixels of row y, limited to the raster width. It returns
// nil if y is out of bounds.
func (p *RGB) Row(y int) []uint8 {
	if y < p.Rect.Min.Y || y >= p.Rect.Max.Y {
		return nil
	}
	i := p.PixOffset(p.Rect.Min.X, y)
	return p.Pix[i : i+p.Rect.Dx()*Channels]
}

// SubImage returns an image representing the portion of the raster p visible
// through r. The returned value shares pixels with the original.
func (p *RGB) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &RGB{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &RGB{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}
