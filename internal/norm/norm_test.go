package norm

import (
	"math"
	"testing"
)

func meanVar(x []float64) (float64, float64) {
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	var variance float64
	for _, v := range x {
		d := v - mean
		variance += d * d
	}
	return mean, variance / float64(len(x))
}

func TestLayerNormZeroMeanUnitVariance(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 100}
	l := NewLayerNorm(len(x))
	l.Normalize(x)

	mean, variance := meanVar(x)
	if math.Abs(mean) > 1e-9 {
		t.Fatalf("mean after layernorm: %v", mean)
	}
	if math.Abs(variance-1) > 1e-4 {
		t.Fatalf("variance after layernorm: %v", variance)
	}
}

func TestLayerNormGainOffset(t *testing.T) {
	x := []float64{-1, 0, 1, 2}
	l := NewLayerNorm(len(x))
	for i := range l.Gain {
		l.Gain[i] = 2
		l.Offset[i] = 3
	}
	l.Normalize(x)

	mean, _ := meanVar(x)
	if math.Abs(mean-3) > 1e-9 {
		t.Fatalf("offset not applied, mean %v", mean)
	}
}

func TestLayerNormConstantInput(t *testing.T) {
	// Zero variance must not divide by zero; epsilon keeps it finite.
	x := []float64{5, 5, 5, 5}
	l := NewLayerNorm(len(x))
	l.Normalize(x)
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("constant input produced non-finite value: %v", x)
		}
	}
}

func TestRMSNormUnitRMS(t *testing.T) {
	x := []float64{3, -4, 12, 5}
	r := NewRMSNorm(len(x))
	r.Normalize(x)

	var ss float64
	for _, v := range x {
		ss += v * v
	}
	rms := math.Sqrt(ss / float64(len(x)))
	if math.Abs(rms-1) > 1e-4 {
		t.Fatalf("rms after rmsnorm: %v", rms)
	}
}

func TestBatchNormStandardizesFeatures(t *testing.T) {
	rows := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
		{4, 40},
	}
	b := NewBatchNorm(2)
	b.Fit(rows)

	if math.Abs(b.Mean[0]-2.5) > 1e-12 || math.Abs(b.Mean[1]-25) > 1e-12 {
		t.Fatalf("fitted means: %v", b.Mean)
	}

	// Normalizing the batch itself should give each feature zero mean.
	var sums [2]float64
	for _, row := range rows {
		x := []float64{row[0], row[1]}
		b.Normalize(x)
		sums[0] += x[0]
		sums[1] += x[1]
	}
	if math.Abs(sums[0]) > 1e-9 || math.Abs(sums[1]) > 1e-9 {
		t.Fatalf("normalized feature sums: %v", sums)
	}
}

func TestBatchNormDefaultsAreIdentityShift(t *testing.T) {
	// Fresh layer has zero mean and unit variance stats: output is nearly
	// the input (up to epsilon).
	x := []float64{1, -2, 3}
	b := NewBatchNorm(3)
	b.Normalize(x)
	want := []float64{1, -2, 3}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-4 {
			t.Fatalf("default batchnorm moved input: %v", x)
		}
	}
}
