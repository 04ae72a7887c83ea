package tensor

import "math/rand"

// Mat represents a dense row-major matrix of float64 values.
//
// R and C represent the number of rows and columns respectively. Data holds
// the flattened matrix values. Mat does not perform any memory safety beyond
// the checks performed by Go's slice types; out-of-range indices will panic.
type Mat struct {
	R, C int
	Data []float64
}

// NewMat allocates a new matrix with the given number of rows and columns.
// The underlying slice is zero initialised.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{
		R:    r,
		C:    c,
		Data: make([]float64, r*c),
	}
}

// Row returns a view of the i-th row of the matrix as a slice. The slice has
// length equal to the number of columns. Modifications to the returned slice
// update the underlying matrix values.
func (m *Mat) Row(i int) []float64 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.C
	return m.Data[start : start+m.C]
}

// MatVec computes dst = x * m for a row vector x of length m.R, writing the
// result of length m.C into dst.
func MatVec(dst []float64, m *Mat, x []float64) {
	if len(x) != m.R || len(dst) != m.C {
		panic("matvec dimension mismatch")
	}
	for j := range dst {
		dst[j] = 0
	}
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		row := m.Row(i)
		for j, w := range row {
			dst[j] += xi * w
		}
	}
}

// FillRand fills the matrix with reproducible pseudo-random values. A small
// range around zero is used to avoid overflow in accumulations. The seed
// controls the random sequence; multiple calls with the same seed produce
// identical matrices.
func FillRand(m *Mat, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.Data {
		m.Data[i] = (rng.Float64() - 0.5) * 2
	}
}
