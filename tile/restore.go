package tile

import (
	"image"

	"github.com/bodgit/degrid/raster"
)

// Restore reverses the grid scrambling of m using a grid with columns
// columns and returns the restored raster. The geometry is derived from the
// bounds of m.
func Restore(m image.Image, columns int) (*raster.RGB, error) {
	b := m.Bounds()
	g, err := Resolve(b.Dx(), b.Dy(), columns)
	if err != nil {
		return nil, err
	}
	return g.Restore(m)
}

// Restore reverses the grid scrambling of m using the precomputed geometry.
// The restored raster always has its top-left corner at (0, 0).
func (g Geometry) Restore(m image.Image) (*raster.RGB, error) {
	src := raster.FromImage(m)

	if b := src.Bounds(); b.Dx() < g.Width || b.Dy() < g.Height {
		return nil, &CropOutOfBoundsError{
			Rect:   image.Rectangle{Max: g.Size()}.Add(b.Min),
			Bounds: b,
		}
	}

	dst := raster.NewRGB(g.Bounds())
	if err := Remap(dst, src, g); err != nil {
		return nil, err
	}

	return dst, nil
}
