package norm

import "math"

// BatchNorm normalizes each feature across a batch using precomputed running
// statistics, then applies a learned per-feature gain and offset. Only the
// inference path is implemented: Fit estimates the running statistics from a
// reference batch, Normalize applies them.
type BatchNorm struct {
	Mean     []float64
	Variance []float64
	Gain     []float64
	Offset   []float64
	Eps      float64
}

// NewBatchNorm creates a BatchNorm for the given feature dimension with zero
// mean, unit variance, gain 1, offset 0 and the default epsilon.
func NewBatchNorm(dim int) *BatchNorm {
	gain := make([]float64, dim)
	variance := make([]float64, dim)
	for i := range gain {
		gain[i] = 1
		variance[i] = 1
	}
	return &BatchNorm{
		Mean:     make([]float64, dim),
		Variance: variance,
		Gain:     gain,
		Offset:   make([]float64, dim),
		Eps:      DefaultEps,
	}
}

// Fit replaces the running statistics with the per-feature mean and variance
// of the given batch. Rows must all have the layer's dimension; an empty
// batch leaves the statistics untouched.
func (b *BatchNorm) Fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	dim := len(b.Mean)
	n := float64(len(rows))

	for j := 0; j < dim; j++ {
		b.Mean[j] = 0
	}
	for _, row := range rows {
		if len(row) != dim {
			panic("batchnorm dimension mismatch")
		}
		for j, v := range row {
			b.Mean[j] += v
		}
	}
	for j := 0; j < dim; j++ {
		b.Mean[j] /= n
	}

	for j := 0; j < dim; j++ {
		b.Variance[j] = 0
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - b.Mean[j]
			b.Variance[j] += d * d
		}
	}
	for j := 0; j < dim; j++ {
		b.Variance[j] /= n
	}
}

// Normalize applies the running statistics to x in place.
func (b *BatchNorm) Normalize(x []float64) {
	if len(x) != len(b.Mean) {
		panic("batchnorm dimension mismatch")
	}
	for j, v := range x {
		invStd := 1.0 / math.Sqrt(b.Variance[j]+b.Eps)
		x[j] = (v-b.Mean[j])*invStd*b.Gain[j] + b.Offset[j]
	}
}
