// Package stitch blends denoised tiles with their original content and
// writes the non-overlapping part of each tile into the output canvas.
package stitch

import (
	"astrodenoise/internal/models"
	"astrodenoise/pkg/tiling"
)

// Blend chooses, per sample, between the denoised value and the raw value.
// Samples whose normalized value is below threshold take the denoised value;
// brighter samples (stars and other strong signal) keep the raw value.
// All three slices must have the same length; the result is written into
// denoised and returned.
func Blend(raw, normalized, denoised []float32, threshold float32) []float32 {
	for k, n := range normalized {
		if !(n < threshold) {
			denoised[k] = raw[k]
		}
	}
	return denoised
}

// Stitcher writes blended tiles into a padded output canvas
type Stitcher struct {
	geometry tiling.Geometry
	canvas   *models.Image
}

// New creates a stitcher for the given geometry writing into canvas, which
// must have the padded size of the geometry
func New(g tiling.Geometry, canvas *models.Image) *Stitcher {
	return &Stitcher{geometry: g, canvas: canvas}
}

// Canvas returns the output canvas
func (s *Stitcher) Canvas() *models.Image {
	return s.canvas
}

// Write copies the inner [Offset, Offset+Stride) block of tile (i, j) into
// the canvas. The overlap margin is discarded.
func (s *Stitcher) Write(tile *models.Image, i, j int) {
	g := s.geometry
	c := s.canvas.Channels
	y0, x0 := g.InnerOrigin(i, j)
	for y := 0; y < g.Stride; y++ {
		src := tile.Index(g.Offset+y, g.Offset, 0)
		dst := s.canvas.Index(y0+y, x0, 0)
		copy(s.canvas.Pix[dst:dst+g.Stride*c], tile.Pix[src:src+g.Stride*c])
	}
}
