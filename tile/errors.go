package tile

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidGeometry is matched by errors returned when a raster is
	// too small for the configured grid
	ErrInvalidGeometry = errors.New("tile: invalid geometry")
	// ErrCropOutOfBounds is matched by errors returned when a tile
	// rectangle falls outside of its raster
	ErrCropOutOfBounds = errors.New("tile: crop out of bounds")
)

// InvalidGeometryError reports the computed geometry of a raster that cannot
// be divided into non-empty tiles.
type InvalidGeometryError struct {
	Geometry Geometry
}

func (e *InvalidGeometryError) Error() string {
	g := e.Geometry
	if g.Columns < 1 {
		return fmt.Sprintf("tile: invalid grid column count %d", g.Columns)
	}
	return fmt.Sprintf("tile: %dx%d raster is too small for %dx%d grid (tile size %dx%d)", g.Width, g.Height, g.Columns, g.Rows, g.TileWidth, g.TileHeight)
}

func (e *InvalidGeometryError) Is(target error) bool {
	return target == ErrInvalidGeometry
}

// CropOutOfBoundsError reports a tile rectangle that is not contained by the
// raster it is copied from or to.
type CropOutOfBoundsError struct {
	Rect   image.Rectangle
	Bounds image.Rectangle
}

func (e *CropOutOfBoundsError) Error() string {
	return fmt.Sprintf("tile: rectangle %v outside of raster bounds %v", e.Rect, e.Bounds)
}

func (e *CropOutOfBoundsError) Is(target error) bool {
	return target == ErrCropOutOfBounds
}
