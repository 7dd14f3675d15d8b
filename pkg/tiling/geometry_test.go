package tiling

import (
	"testing"

	"astrodenoise/internal/models"

	"github.com/stretchr/testify/require"
)

// rampImage fills each sample with a value that encodes its position
func rampImage(h, w, c int) *models.Image {
	img := models.NewImage(h, w, c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				img.Set(y, x, ch, float32(y*10000+x*10+ch))
			}
		}
	}
	return img
}

func TestPlan(t *testing.T) {
	g, err := Plan(300, 300, 256, 128)
	require.NoError(t, err)
	require.Equal(t, 64, g.Offset)
	require.Equal(t, 3, g.TilesY)
	require.Equal(t, 3, g.TilesX)
	require.Equal(t, 84, g.PadY)
	require.Equal(t, 84, g.PadX)
	require.Equal(t, 9, g.NumTiles())
	require.Equal(t, 512, g.PaddedHeight())
	require.Equal(t, 512, g.PaddedWidth())
}

func TestPlanInvalid(t *testing.T) {
	_, err := Plan(100, 100, 256, 0)
	require.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = Plan(100, 100, 256, -4)
	require.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = Plan(100, 100, 128, 128)
	require.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = Plan(0, 100, 256, 128)
	require.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestPlanCounts(t *testing.T) {
	for h := 1; h < 70; h += 3 {
		for w := 1; w < 70; w += 5 {
			for stride := 1; stride < 20; stride += 3 {
				for window := stride + 1; window < stride+12; window += 2 {
					g, err := Plan(h, w, window, stride)
					require.NoError(t, err)
					require.Equal(t, h/stride+1, g.TilesY)
					require.Equal(t, w/stride+1, g.TilesX)
					require.GreaterOrEqual(t, g.TilesY, 1)
					require.Equal(t, 0, (g.PaddedHeight()-2*g.Offset)%stride)
					require.Equal(t, 0, (g.PaddedWidth()-2*g.Offset)%stride)
				}
			}
		}
	}
}

func TestPadMatchesConcatenation(t *testing.T) {
	// 5 rows, stride 4: two tile rows, 3 alignment rows, offset 1
	g, err := Plan(5, 6, 6, 4)
	require.NoError(t, err)
	require.Equal(t, 1, g.Offset)

	// rows: 0..4, then 2,3,4 (last 3), then 4 (last 1), with 0 prepended
	require.Equal(t, []int{0, 0, 1, 2, 3, 4, 2, 3, 4, 4}, g.rowMap())
	// cols: 0..5, then 4,5 (last 2), then 5, with 0 prepended
	require.Equal(t, []int{0, 0, 1, 2, 3, 4, 5, 4, 5, 5}, g.colMap())

	img := rampImage(5, 6, 3)
	padded, err := g.Pad(img)
	require.NoError(t, err)
	require.Equal(t, g.PaddedHeight(), padded.Height)
	require.Equal(t, g.PaddedWidth(), padded.Width)
	require.Equal(t, img.At(2, 4, 1), padded.At(6, 7, 1))
	require.Equal(t, img.At(0, 0, 2), padded.At(0, 0, 2))
}

func TestPadSmallImage(t *testing.T) {
	// image smaller than the stride and the alignment padding
	g, err := Plan(3, 2, 16, 8)
	require.NoError(t, err)
	require.Equal(t, 1, g.TilesY)
	require.Equal(t, 1, g.TilesX)

	img := rampImage(3, 2, 1)
	padded, err := g.Pad(img)
	require.NoError(t, err)
	require.Equal(t, 16, padded.Height)
	require.Equal(t, 16, padded.Width)

	for _, v := range padded.Pix {
		found := false
		for _, s := range img.Pix {
			if s == v {
				found = true
				break
			}
		}
		require.True(t, found, "padding introduced value %v", v)
	}

	tile := g.Tile(padded, 0, 0)
	require.Equal(t, 16, tile.Height)
	require.Equal(t, 16, tile.Width)

	cropped := g.Crop(padded)
	require.Equal(t, img.Pix, cropped.Pix)
}

func TestPadCropRoundTrip(t *testing.T) {
	for _, tc := range []struct{ h, w, window, stride int }{
		{300, 300, 256, 128},
		{17, 33, 12, 5},
		{64, 64, 32, 16},
		{10, 7, 9, 4},
	} {
		g, err := Plan(tc.h, tc.w, tc.window, tc.stride)
		require.NoError(t, err)
		img := rampImage(tc.h, tc.w, 3)
		padded, err := g.Pad(img)
		require.NoError(t, err)
		cropped := g.Crop(padded)
		require.Equal(t, tc.h, cropped.Height)
		require.Equal(t, tc.w, cropped.Width)
		require.Equal(t, img.Pix, cropped.Pix)
	}
}

func TestSplitTileIndex(t *testing.T) {
	g, err := Plan(300, 300, 256, 128)
	require.NoError(t, err)

	i, j, ok := g.SplitTileIndex(0)
	require.True(t, ok)
	require.Equal(t, []int{0, 0}, []int{i, j})

	// rows vary fastest
	i, j, ok = g.SplitTileIndex(1)
	require.True(t, ok)
	require.Equal(t, []int{1, 0}, []int{i, j})

	i, j, ok = g.SplitTileIndex(5)
	require.True(t, ok)
	require.Equal(t, []int{2, 1}, []int{i, j})

	_, _, ok = g.SplitTileIndex(9)
	require.False(t, ok)
	_, _, ok = g.SplitTileIndex(-1)
	require.False(t, ok)
}

func TestTileOddOverlap(t *testing.T) {
	// window-stride is odd: offset truncates and the last tile reads past the edge
	g, err := Plan(10, 10, 9, 4)
	require.NoError(t, err)
	require.Equal(t, 2, g.Offset)
	require.Equal(t, 16, g.PaddedHeight())

	padded, err := g.Pad(rampImage(10, 10, 1))
	require.NoError(t, err)

	last := g.TilesY - 1
	tile := g.Tile(padded, last, last)
	require.Equal(t, 9, tile.Height)
	require.Equal(t, padded.At(15, 15, 0), tile.At(8, 8, 0))

	y, x := g.InnerOrigin(last, last)
	require.LessOrEqual(t, y+g.Stride, padded.Height)
	require.LessOrEqual(t, x+g.Stride, padded.Width)
}
