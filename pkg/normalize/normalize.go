// Package normalize implements the per-tile log-domain standardization
// applied before inference, and its inverse.
package normalize

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// Epsilon keeps the logarithm defined for the minimum sample
	Epsilon = 1e-5

	// Scale is applied after standardization
	Scale = 0.1
)

// Params holds the statistics needed to undo Forward
type Params struct {
	Min  float64
	Mean float64
	Std  float64

	// Flat marks a tile with zero variance in the log domain. Flat tiles are
	// not scaled and should be passed through unchanged by the caller.
	Flat bool
}

// Forward shifts the tile to a positive range, takes the natural log and
// standardizes the result to zero mean and a standard deviation of Scale.
// A flat tile yields all zeros and Params.Flat set.
func Forward(tile []float32) ([]float32, Params) {
	if len(tile) == 0 {
		return nil, Params{Flat: true}
	}

	logs := make([]float64, len(tile))
	for k, v := range tile {
		logs[k] = float64(v)
	}
	m := floats.Min(logs)
	if floats.Max(logs) == m {
		return make([]float32, len(tile)), Params{Min: m, Mean: math.Log(Epsilon), Flat: true}
	}
	for k, v := range logs {
		logs[k] = math.Log(v - m + Epsilon)
	}

	mean, std := stat.PopMeanStdDev(logs, nil)
	p := Params{Min: m, Mean: mean, Std: std}

	out := make([]float32, len(tile))
	if std == 0 || math.IsNaN(std) {
		p.Flat = true
		return out, p
	}
	for k, v := range logs {
		out[k] = float32((v - mean) / std * Scale)
	}
	return out, p
}

// Inverse maps a tile in the normalized domain back to sample values
// using the statistics returned by Forward
func Inverse(tile []float32, p Params) []float32 {
	out := make([]float32, len(tile))
	for k, v := range tile {
		y := float64(v)
		if !p.Flat {
			y = y * p.Std / Scale
		}
		y = math.Exp(y+p.Mean) + p.Min - Epsilon
		out[k] = float32(y)
	}
	return out
}
