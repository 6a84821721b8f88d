/*
Package tile implements reversal of the grid scrambling transform.

A scrambled raster is split into a grid of Columns by Columns+2 tiles, each
TileWidth by TileHeight pixels, any remainder from the integer division being
ignored. The restored raster is built from a Columns by Columns grid where
the tile at (row, col) is taken from (Rows-1-row, Columns-1-col) in the
scrambled raster, a 180 degree rotation of the grid. The top two tile rows of
the scrambled raster are never read; they hold the watermark strip and are
dropped, so the restored raster keeps the width but is only
TileHeight*Columns pixels high.
*/
package tile

import (
	"fmt"
	"image"
)

const (
	// DefaultColumns is the number of grid columns used when none is
	// configured
	DefaultColumns = 64
	phantomRows    = 2
)

// Geometry describes how a raster of a given size is divided into tiles. It
// is an immutable value and safe to share between goroutines.
type Geometry struct {
	Width, Height int // Scrambled raster size
	Columns, Rows int
	TileWidth     int
	TileHeight    int
}

// Resolve computes the Geometry for a width by height raster split into
// columns grid columns. It returns an *InvalidGeometryError if the raster is
// too small for the grid.
func Resolve(width, height, columns int) (Geometry, error) {
	g := Geometry{
		Width:   width,
		Height:  height,
		Columns: columns,
		Rows:    columns + phantomRows,
	}

	if columns < 1 {
		return g, &InvalidGeometryError{g}
	}

	g.TileWidth = width / g.Columns
	g.TileHeight = height / g.Rows

	if g.TileWidth < 1 || g.TileHeight < 1 {
		return g, &InvalidGeometryError{g}
	}

	return g, nil
}

// Size returns the dimensions of the scrambled raster.
func (g Geometry) Size() image.Point {
	return image.Pt(g.Width, g.Height)
}

// Bounds returns the bounds of the restored raster.
func (g Geometry) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.TileHeight*g.Columns)
}

// Source returns the grid position of the scrambled tile that belongs at
// (row, col) in the restored raster.
func (g Geometry) Source(row, col int) (int, int) {
	return g.Rows - 1 - row, g.Columns - 1 - col
}

// SourceRect returns the pixel rectangle, relative to the scrambled raster's
// origin, of the tile that belongs at (row, col) in the restored raster.
func (g Geometry) SourceRect(row, col int) image.Rectangle {
	r, c := g.Source(row, col)
	return g.rect(r, c)
}

// DestRect returns the pixel rectangle of the tile at (row, col) in the
// restored raster.
func (g Geometry) DestRect(row, col int) image.Rectangle {
	return g.rect(row, col)
}

// Phantom returns the pixel rectangle, relative to the scrambled raster's
// origin, of the tile rows that are discarded.
func (g Geometry) Phantom() image.Rectangle {
	return image.Rect(0, 0, g.TileWidth*g.Columns, g.TileHeight*phantomRows)
}

func (g Geometry) rect(row, col int) image.Rectangle {
	x, y := col*g.TileWidth, row*g.TileHeight
	return image.Rect(x, y, x+g.TileWidth, y+g.TileHeight)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d grid of %dx%d tiles over %dx%d", g.Columns, g.Rows, g.TileWidth, g.TileHeight, g.Width, g.Height)
}
