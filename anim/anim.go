/*
Package anim reads and writes animated GIF images as frame sequences.

Frames in a GIF may only cover part of the logical screen and rely on the
previous frames and their disposal methods for the rest, so the decoder
composites every frame onto a full size canvas before handing it out. Frames
are written back out quantized to a per-frame palette.
*/
package anim

import (
	"errors"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"time"

	"github.com/bodgit/degrid/raster"
	"github.com/bodgit/degrid/sequence"
)

// GIF delays are in hundredths of a second
const delayUnit = 10 * time.Millisecond

var errNoFrames = errors.New("anim: no frames to encode")

// Decoder produces the composited frames of a GIF in order. It implements
// sequence.Source.
type Decoder struct {
	g        *gif.GIF
	canvas   *image.RGBA
	previous *image.RGBA
	index    int
}

// Decode reads a GIF from r.
func Decode(r io.Reader) (*Decoder, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}

	b := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if b.Empty() {
		for _, m := range g.Image {
			b = b.Union(m.Bounds())
		}
	}

	return &Decoder{
		g:      g,
		canvas: image.NewRGBA(b),
	}, nil
}

// Len returns the number of frames.
func (d *Decoder) Len() int {
	return len(d.g.Image)
}

// LoopCount returns the number of times the animation should loop, 0 meaning
// forever.
func (d *Decoder) LoopCount() int {
	return d.g.LoopCount
}

// Bounds returns the bounds of every composited frame.
func (d *Decoder) Bounds() image.Rectangle {
	return d.canvas.Bounds()
}

func (d *Decoder) disposal(i int) byte {
	if i < len(d.g.Disposal) {
		return d.g.Disposal[i]
	}
	return gif.DisposalNone
}

func (d *Decoder) delay(i int) time.Duration {
	if i < len(d.g.Delay) {
		return time.Duration(d.g.Delay[i]) * delayUnit
	}
	return 0
}

// Next returns the next composited frame or io.EOF.
func (d *Decoder) Next() (sequence.Frame, error) {
	if d.index >= len(d.g.Image) {
		return sequence.Frame{}, io.EOF
	}

	i := d.index
	m := d.g.Image[i]
	d.index++

	disposal := d.disposal(i)
	if disposal == gif.DisposalPrevious {
		d.previous = image.NewRGBA(d.canvas.Bounds())
		copy(d.previous.Pix, d.canvas.Pix)
	}

	draw.Draw(d.canvas, m.Bounds(), m, m.Bounds().Min, draw.Over)

	f := sequence.Frame{
		Image: raster.FromImage(d.canvas),
		Delay: d.delay(i),
	}

	switch disposal {
	case gif.DisposalBackground:
		draw.Draw(d.canvas, m.Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		d.canvas, d.previous = d.previous, nil
	}

	return f, nil
}

// Encode writes frames to w as an animated GIF that loops loopCount times, 0
// meaning forever. Each frame is quantized to its own palette.
func Encode(w io.Writer, frames []sequence.Frame, loopCount int) error {
	if len(frames) == 0 {
		return errNoFrames
	}

	g := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: loopCount,
	}

	for _, f := range frames {
		g.Image = append(g.Image, raster.Quantize(f.Image, raster.MaxColors))
		g.Delay = append(g.Delay, int(f.Delay/delayUnit))
	}

	return gif.EncodeAll(w, g)
}
