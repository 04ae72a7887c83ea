package tensor

import (
	"fmt"
	"math"
)

// SumTolerance is the maximum allowed deviation of a distribution slice's sum
// from 1. Slices produced by a softmax land well inside this bound; anything
// outside it is a malformed input rather than rounding noise.
const SumTolerance = 1e-6

// Dist represents a batch of per-step categorical distributions over a fixed
// vocabulary, laid out row-major as (batch, steps, vocab).
//
// Batch, Steps and Vocab give the three dimensions. Data holds the flattened
// values; the slice for (b, t) starts at (b*Steps+t)*Vocab.
//
// Dist does not perform any memory safety beyond the checks performed by Go's
// slice types; out-of-range indices will panic.
type Dist struct {
	Batch, Steps, Vocab int

	Data []float64
}

// NewDist allocates a zero-filled distribution tensor with the given
// dimensions. The result is not a valid probability tensor until filled;
// callers are expected to populate it and run Validate.
func NewDist(batch, steps, vocab int) (*Dist, error) {
	if batch < 1 || steps < 1 || vocab < 1 {
		return nil, fmt.Errorf("distribution dimensions must be positive, got (%d, %d, %d)", batch, steps, vocab)
	}
	return &Dist{
		Batch: batch,
		Steps: steps,
		Vocab: vocab,
		Data:  make([]float64, batch*steps*vocab),
	}, nil
}

// NewDistFromData wraps existing flattened data in a Dist. It checks that the
// data length matches batch*steps*vocab; the values themselves are checked by
// Validate.
func NewDistFromData(batch, steps, vocab int, data []float64) (*Dist, error) {
	if batch < 1 || steps < 1 || vocab < 1 {
		return nil, fmt.Errorf("distribution dimensions must be positive, got (%d, %d, %d)", batch, steps, vocab)
	}
	if len(data) != batch*steps*vocab {
		return nil, fmt.Errorf("data length %d does not match dimensions (%d, %d, %d)", len(data), batch, steps, vocab)
	}
	return &Dist{
		Batch: batch,
		Steps: steps,
		Vocab: vocab,
		Data:  data,
	}, nil
}

// FromNested flattens nested (batch, steps, vocab) arrays into a Dist,
// checking that the tensor is rectangular. Values are copied.
func FromNested(probs [][][]float64) (*Dist, error) {
	if len(probs) == 0 || len(probs[0]) == 0 || len(probs[0][0]) == 0 {
		return nil, fmt.Errorf("probability tensor must be non-empty in all three dimensions")
	}
	batch := len(probs)
	steps := len(probs[0])
	vocab := len(probs[0][0])

	data := make([]float64, 0, batch*steps*vocab)
	for b, stepsArr := range probs {
		if len(stepsArr) != steps {
			return nil, fmt.Errorf("batch element %d has %d steps, want %d", b, len(stepsArr), steps)
		}
		for t, row := range stepsArr {
			if len(row) != vocab {
				return nil, fmt.Errorf("slice (batch=%d, step=%d) has %d entries, want %d", b, t, len(row), vocab)
			}
			data = append(data, row...)
		}
	}
	return NewDistFromData(batch, steps, vocab, data)
}

// Slice returns a view of the distribution at (b, t) as a slice of length
// Vocab. Modifications to the returned slice update the underlying tensor.
func (d *Dist) Slice(b, t int) []float64 {
	if b < 0 || b >= d.Batch || t < 0 || t >= d.Steps {
		panic("distribution index out of range")
	}
	start := (b*d.Steps + t) * d.Vocab
	return d.Data[start : start+d.Vocab]
}

// SetSlice copies a vocabulary-length distribution into position (b, t).
func (d *Dist) SetSlice(b, t int, probs []float64) {
	if len(probs) != d.Vocab {
		panic("distribution slice length mismatch")
	}
	copy(d.Slice(b, t), probs)
}

// Validate checks that every (batch, step) slice is a categorical
// distribution: entries non-negative, at least one entry positive, and the sum
// within SumTolerance of 1. The first violation found is returned.
func (d *Dist) Validate() error {
	for b := 0; b < d.Batch; b++ {
		for t := 0; t < d.Steps; t++ {
			if err := ValidateSlice(d.Slice(b, t)); err != nil {
				return fmt.Errorf("slice (batch=%d, step=%d): %w", b, t, err)
			}
		}
	}
	return nil
}

// ValidateSlice checks a single vocabulary-length distribution.
func ValidateSlice(probs []float64) error {
	if len(probs) == 0 {
		return fmt.Errorf("empty distribution")
	}
	var sum float64
	positive := false
	for i, p := range probs {
		if math.IsNaN(p) {
			return fmt.Errorf("NaN probability at index %d", i)
		}
		if p < 0 {
			return fmt.Errorf("negative probability %g at index %d", p, i)
		}
		if p > 0 {
			positive = true
		}
		sum += p
	}
	if !positive {
		return fmt.Errorf("degenerate distribution: all entries zero")
	}
	if math.Abs(sum-1) > SumTolerance {
		return fmt.Errorf("distribution sums to %g, want 1 within %g", sum, SumTolerance)
	}
	return nil
}

// Softmax writes the softmax of logits into dst. The maximum logit is
// subtracted before exponentiation for numerical stability. dst and logits may
// alias; both must have the same length.
func Softmax(dst, logits []float64) {
	if len(dst) != len(logits) {
		panic("softmax length mismatch")
	}
	if len(logits) == 0 {
		return
	}
	maxv := logits[0]
	for _, v := range logits[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(v - maxv)
		dst[i] = e
		sum += e
	}
	inv := 1.0 / sum
	for i := range dst {
		dst[i] *= inv
	}
}
