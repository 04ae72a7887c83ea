// Package norm implements inference-mode normalization layers over feature
// vectors: layer normalization, RMS normalization and batch normalization.
// All layers operate in place on float64 slices.
package norm

import "math"

// DefaultEps is the stabilising constant added to variances before the square
// root when the caller does not supply one.
const DefaultEps = 1e-5

// LayerNorm normalizes a feature vector to zero mean and unit variance over
// its own entries, then applies a learned per-feature gain and offset.
type LayerNorm struct {
	Gain   []float64
	Offset []float64
	Eps    float64
}

// NewLayerNorm creates a LayerNorm for vectors of the given dimension with
// gain initialised to 1, offset to 0 and the default epsilon.
func NewLayerNorm(dim int) *LayerNorm {
	gain := make([]float64, dim)
	for i := range gain {
		gain[i] = 1
	}
	return &LayerNorm{
		Gain:   gain,
		Offset: make([]float64, dim),
		Eps:    DefaultEps,
	}
}

// Normalize applies layer normalization to x in place. The length of x must
// match the layer's dimension.
func (l *LayerNorm) Normalize(x []float64) {
	if len(x) != len(l.Gain) {
		panic("layernorm dimension mismatch")
	}
	n := float64(len(x))

	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range x {
		d := v - mean
		variance += d * d
	}
	variance /= n

	invStd := 1.0 / math.Sqrt(variance+l.Eps)
	for i, v := range x {
		x[i] = (v-mean)*invStd*l.Gain[i] + l.Offset[i]
	}
}
