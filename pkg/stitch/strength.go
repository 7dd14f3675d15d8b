package stitch

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"astrodenoise/internal/models"
)

// statsStep is the sampling step used when estimating background statistics
const statsStep = 4

// ChannelStats holds robust background statistics for one channel
type ChannelStats struct {
	Median float64
	MAD    float64
}

// BackgroundStats estimates the per-channel median and median absolute
// deviation, sampling every fourth row and column
func BackgroundStats(img *models.Image) []ChannelStats {
	out := make([]ChannelStats, img.Channels)
	n := ((img.Height + statsStep - 1) / statsStep) * ((img.Width + statsStep - 1) / statsStep)
	values := make([]float64, 0, n)

	for c := 0; c < img.Channels; c++ {
		values = values[:0]
		for y := 0; y < img.Height; y += statsStep {
			for x := 0; x < img.Width; x += statsStep {
				values = append(values, float64(img.At(y, x, c)))
			}
		}
		med := median(values)
		floats.AddConst(-med, values)
		for k, v := range values {
			values[k] = math.Abs(v)
		}
		out[c] = ChannelStats{Median: med, MAD: median(values)}
	}
	return out
}

// BlendWithStrength mixes a denoised image into the original. Pixels at or
// above the signal level derived from threshold and the background
// statistics keep their original value; the result is then mixed with the
// original by strength and clipped to [0, 1].
func BlendWithStrength(original, denoised *models.Image, strength float64, threshold float32, stats []ChannelStats) *models.Image {
	out := models.NewImage(original.Height, original.Width, original.Channels)
	c := original.Channels

	levels := make([]float64, c)
	for ch := 0; ch < c; ch++ {
		levels[ch] = float64(threshold)/0.04*stats[ch].MAD + stats[ch].Median
	}

	for k, o := range original.Pix {
		v := float64(o)
		if v < levels[k%c] {
			v = float64(denoised.Pix[k])
		}
		v = v*strength + float64(o)*(1-strength)
		out.Pix[k] = float32(math.Max(0, math.Min(1, v)))
	}
	return out
}

// median calculates the median value of a slice of float64 values
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
