package tile

import (
	"image"

	"github.com/bodgit/degrid/raster"
)

func checkBounds(r, bounds image.Rectangle) error {
	if !r.In(bounds) {
		return &CropOutOfBoundsError{
			Rect:   r,
			Bounds: bounds,
		}
	}
	return nil
}

// copyTile copies the dr sized block at sp in src to dr in dst, one pixel row
// at a time
func copyTile(dst *raster.RGB, dr image.Rectangle, src *raster.RGB, sp image.Point) {
	n := dr.Dx() * raster.Channels
	for y := 0; y < dr.Dy(); y++ {
		di := dst.PixOffset(dr.Min.X, dr.Min.Y+y)
		si := src.PixOffset(sp.X, sp.Y+y)
		copy(dst.Pix[di:di+n], src.Pix[si:si+n])
	}
}

// Remap copies every tile of the restored grid described by g from src into
// dst. Tile rectangles are relative to the origin of each raster. It returns
// a *CropOutOfBoundsError, leaving dst partially written, if a tile falls
// outside either raster.
func Remap(dst, src *raster.RGB, g Geometry) error {
	for row := 0; row < g.Columns; row++ {
		for col := 0; col < g.Columns; col++ {
			sr := g.SourceRect(row, col).Add(src.Rect.Min)
			if err := checkBounds(sr, src.Rect); err != nil {
				return err
			}

			dr := g.DestRect(row, col).Add(dst.Rect.Min)
			if err := checkBounds(dr, dst.Rect); err != nil {
				return err
			}

			copyTile(dst, dr, src, sr.Min)
		}
	}
	return nil
}
