package stitch

import (
	"testing"

	"astrodenoise/internal/models"
	"astrodenoise/pkg/tiling"

	"github.com/stretchr/testify/require"
)

func TestBlendThreshold(t *testing.T) {
	raw := []float32{0.1, 0.2, 0.9, 0.4}
	normalized := []float32{-0.5, 0.99, 1.0, 3.0}
	denoised := []float32{0.05, 0.15, 0.8, 0.3}

	out := Blend(raw, normalized, denoised, 1.0)

	// below threshold: denoised, at or above: raw
	require.Equal(t, []float32{0.05, 0.15, 0.9, 0.4}, out)
}

func TestStitcherWritesInnerBlockOnly(t *testing.T) {
	g, err := tiling.Plan(8, 8, 8, 4)
	require.NoError(t, err)
	require.Equal(t, 2, g.Offset)

	canvas := models.NewImage(g.PaddedHeight(), g.PaddedWidth(), 1)
	s := New(g, canvas)

	tile := models.NewImage(g.WindowSize, g.WindowSize, 1)
	for k := range tile.Pix {
		tile.Pix[k] = 1
	}
	s.Write(tile, 1, 0)

	written := 0
	for y := 0; y < canvas.Height; y++ {
		for x := 0; x < canvas.Width; x++ {
			if canvas.At(y, x, 0) == 1 {
				written++
				require.True(t, y >= 6 && y < 10, "row %d outside inner block", y)
				require.True(t, x >= 2 && x < 6, "column %d outside inner block", x)
			}
		}
	}
	require.Equal(t, g.Stride*g.Stride, written)
	require.Same(t, canvas, s.Canvas())
}

func TestBackgroundStats(t *testing.T) {
	img := models.NewImage(8, 8, 1)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(y, x, 0, float32(y*8+x)/64)
		}
	}
	// sampled: (0,0)=0, (0,4)=4/64, (4,0)=32/64, (4,4)=36/64
	stats := BackgroundStats(img)
	require.Len(t, stats, 1)
	require.InDelta(t, 18.0/64, stats[0].Median, 1e-6)
	require.InDelta(t, 16.0/64, stats[0].MAD, 1e-6)
}

func TestBlendWithStrength(t *testing.T) {
	original := &models.Image{Pix: []float32{0.1, 0.9, 0.2}, Height: 1, Width: 3, Channels: 1}
	denoised := &models.Image{Pix: []float32{0.0, 0.5, -0.4}, Height: 1, Width: 3, Channels: 1}
	stats := []ChannelStats{{Median: 0.1, MAD: 0.01}}

	// level = 1/0.04*0.01 + 0.1 = 0.35
	out := BlendWithStrength(original, denoised, 0.5, 1.0, stats)
	require.InDelta(t, 0.05, out.Pix[0], 1e-6)
	require.InDelta(t, 0.9, out.Pix[1], 1e-6)
	// 0.5*-0.4 + 0.5*0.2 = -0.1, clipped
	require.InDelta(t, 0.0, out.Pix[2], 1e-6)

	full := BlendWithStrength(original, denoised, 1.0, 1.0, stats)
	require.InDelta(t, 0.0, full.Pix[0], 1e-6)
	none := BlendWithStrength(original, denoised, 0.0, 1.0, stats)
	require.Equal(t, original.Pix, none.Pix)
}
