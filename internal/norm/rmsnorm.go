package norm

import "math"

// RMSNorm scales a feature vector by the inverse of its root mean square,
// then applies a learned per-feature gain. Unlike LayerNorm it does not
// re-centre the vector.
type RMSNorm struct {
	Gain []float64
	Eps  float64
}

// NewRMSNorm creates an RMSNorm for vectors of the given dimension with gain
// initialised to 1 and the default epsilon.
func NewRMSNorm(dim int) *RMSNorm {
	gain := make([]float64, dim)
	for i := range gain {
		gain[i] = 1
	}
	return &RMSNorm{
		Gain: gain,
		Eps:  DefaultEps,
	}
}

// Normalize applies RMS normalization to x in place.
func (r *RMSNorm) Normalize(x []float64) {
	if len(x) != len(r.Gain) {
		panic("rmsnorm dimension mismatch")
	}
	var ss float64
	for _, v := range x {
		ss += v * v
	}
	inv := 1.0 / math.Sqrt(ss/float64(len(x))+r.Eps)
	for i, v := range x {
		x[i] = v * inv * r.Gain[i]
	}
}
