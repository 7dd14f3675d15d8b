// Package tiling splits an image into fixed-size overlapping windows for
// neural network inference and reassembles the results.
//
// Tiles are placed on a regular grid with spacing "stride". Each tile is
// "window" pixels wide, so neighbouring tiles overlap by window-stride
// pixels. Only the inner stride x stride block of every tile is kept when
// the result is written back; the surrounding margin of Offset pixels exists
// only to give the network context.
//
// To make every tile a full window, the image is first extended at the bottom
// and right so that its size becomes a multiple of stride, and then extended by
// Offset pixels on all four sides. Padding never introduces new values: the
// extra rows and columns are copies of rows and columns that already exist.
package tiling

import (
	"errors"
	"fmt"

	"astrodenoise/internal/models"
)

// ErrInvalidGeometry is returned when the window, stride or image size
// cannot produce a valid tiling.
var ErrInvalidGeometry = errors.New("invalid tile geometry")

// Geometry defines how an image has been split into tiles
type Geometry struct {
	Height     int // Height of the original image
	Width      int // Width of the original image
	WindowSize int // Edge length of each (square) tile
	Stride     int // Pixels between successive tile origins
	Offset     int // Margin discarded on each side of a tile, (WindowSize-Stride)/2
	TilesY     int // Number of tile rows
	TilesX     int // Number of tile columns
	PadY       int // Rows added at the bottom to reach TilesY*Stride
	PadX       int // Columns added at the right to reach TilesX*Stride
}

// Plan computes the tile geometry for an image of the given size.
// The offset truncates when WindowSize-Stride is odd.
func Plan(height, width, windowSize, stride int) (Geometry, error) {
	if stride <= 0 {
		return Geometry{}, fmt.Errorf("%w: stride %d must be positive", ErrInvalidGeometry, stride)
	}
	if windowSize <= stride {
		return Geometry{}, fmt.Errorf("%w: window size %d must exceed stride %d", ErrInvalidGeometry, windowSize, stride)
	}
	if height <= 0 || width <= 0 {
		return Geometry{}, fmt.Errorf("%w: image size %dx%d", ErrInvalidGeometry, width, height)
	}

	tilesY := height/stride + 1
	tilesX := width/stride + 1
	return Geometry{
		Height:     height,
		Width:      width,
		WindowSize: windowSize,
		Stride:     stride,
		Offset:     (windowSize - stride) / 2,
		TilesY:     tilesY,
		TilesX:     tilesX,
		PadY:       tilesY*stride - height,
		PadX:       tilesX*stride - width,
	}, nil
}

// NumTiles returns the total number of tiles
func (g Geometry) NumTiles() int {
	return g.TilesY * g.TilesX
}

// PaddedHeight returns the height of the padded canvas
func (g Geometry) PaddedHeight() int {
	return g.TilesY*g.Stride + 2*g.Offset
}

// PaddedWidth returns the width of the padded canvas
func (g Geometry) PaddedWidth() int {
	return g.TilesX*g.Stride + 2*g.Offset
}

// SplitTileIndex converts a linear tile index into tile row i and tile
// column j. Rows vary fastest. ok is false when the index lies outside the
// grid.
func (g Geometry) SplitTileIndex(n int) (i, j int, ok bool) {
	if n < 0 {
		return 0, 0, false
	}
	i = n % g.TilesY
	j = n / g.TilesY
	return i, j, j < g.TilesX
}

// TileOrigin returns the (row, column) of the top-left pixel of tile (i, j)
// in padded canvas coordinates
func (g Geometry) TileOrigin(i, j int) (int, int) {
	return g.Stride * i, g.Stride * j
}

// InnerOrigin returns the canvas position where the kept inner block of
// tile (i, j) is written
func (g Geometry) InnerOrigin(i, j int) (int, int) {
	return g.Stride*i + g.Offset, g.Stride*j + g.Offset
}

// Pad builds the padded canvas for img. img must have the size the
// geometry was planned for.
func (g Geometry) Pad(img *models.Image) (*models.Image, error) {
	if img.Height != g.Height || img.Width != g.Width {
		return nil, fmt.Errorf("%w: image is %dx%d, geometry planned for %dx%d",
			ErrInvalidGeometry, img.Width, img.Height, g.Width, g.Height)
	}

	rows := g.rowMap()
	cols := g.colMap()
	c := img.Channels

	out := models.NewImage(len(rows), len(cols), c)
	for y, sy := range rows {
		for x, sx := range cols {
			src := img.Index(sy, sx, 0)
			dst := out.Index(y, x, 0)
			copy(out.Pix[dst:dst+c], img.Pix[src:src+c])
		}
	}
	return out, nil
}

// Crop cuts the original image area back out of a padded canvas
func (g Geometry) Crop(canvas *models.Image) *models.Image {
	c := canvas.Channels
	out := models.NewImage(g.Height, g.Width, c)
	for y := 0; y < g.Height; y++ {
		src := canvas.Index(y+g.Offset, g.Offset, 0)
		dst := out.Index(y, 0, 0)
		copy(out.Pix[dst:dst+g.Width*c], canvas.Pix[src:src+g.Width*c])
	}
	return out
}

// Tile extracts the WindowSize x WindowSize block of tile (i, j) from a
// padded canvas. When WindowSize-Stride is odd the last tile row or column
// reaches one sample past the canvas; such samples repeat the canvas edge.
func (g Geometry) Tile(canvas *models.Image, i, j int) *models.Image {
	y0, x0 := g.TileOrigin(i, j)
	c := canvas.Channels
	tile := models.NewImage(g.WindowSize, g.WindowSize, c)
	for y := 0; y < g.WindowSize; y++ {
		sy := min(y0+y, canvas.Height-1)
		for x := 0; x < g.WindowSize; x++ {
			sx := min(x0+x, canvas.Width-1)
			src := canvas.Index(sy, sx, 0)
			dst := tile.Index(y, x, 0)
			copy(tile.Pix[dst:dst+c], canvas.Pix[src:src+c])
		}
	}
	return tile
}

// rowMap returns, for every row of the padded canvas, the source row in the
// original image
func (g Geometry) rowMap() []int {
	return padIndices(g.Height, g.PadY, g.Offset)
}

// colMap returns, for every column of the padded canvas, the source column in
// the original image
func (g Geometry) colMap() []int {
	return padIndices(g.Width, g.PadX, g.Offset)
}

// padIndices maps padded positions to source positions along one axis.
// First the trailing "align" entries are appended, then the trailing
// "offset" entries are appended and the leading "offset" entries prepended.
func padIndices(size, align, offset int) []int {
	idx := make([]int, size, size+align+2*offset)
	for k := range idx {
		idx[k] = k
	}
	idx = appendTail(idx, align)
	idx = appendTail(idx, offset)
	return prependHead(idx, offset)
}

// appendTail appends the last n entries of idx. If n exceeds the current
// length the extension is repeated on the grown slice until n entries were
// added.
func appendTail(idx []int, n int) []int {
	for n > 0 {
		k := min(n, len(idx))
		idx = append(idx, idx[len(idx)-k:]...)
		n -= k
	}
	return idx
}

// prependHead prepends the first n entries of idx, repeating like appendTail
func prependHead(idx []int, n int) []int {
	for n > 0 {
		k := min(n, len(idx))
		head := make([]int, k, k+len(idx))
		copy(head, idx[:k])
		idx = append(head, idx...)
		n -= k
	}
	return idx
}
