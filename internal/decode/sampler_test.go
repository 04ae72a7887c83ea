package decode

import "testing"

// TestSamplerDeterminism ensures that two samplers configured identically
// produce identical results when sampling the same distribution.
func TestSamplerDeterminism(t *testing.T) {
	probs := []float64{0.05, 0.1, 0.15, 0.2, 0.2, 0.3}
	s1 := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9, TopK: 4, TopP: 0.95})
	s2 := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9, TopK: 4, TopP: 0.95})
	for i := 0; i < 16; i++ {
		a := s1.Sample(probs)
		b := s2.Sample(probs)
		if a != b {
			t.Fatalf("expected deterministic sample at draw %d, got %d vs %d", i, a, b)
		}
	}
}

// TestSamplerGreedy tests that a zero temperature returns the index of the
// maximum probability.
func TestSamplerGreedy(t *testing.T) {
	probs := []float64{0.05, 0.3, 0.1, 0.5, 0.05}
	s := NewSampler(SamplerConfig{Seed: 99, Temperature: 0})
	idx := s.Sample(probs)
	if idx != 3 {
		t.Fatalf("expected greedy index 3, got %d", idx)
	}
}

// TestSamplerTopK ensures the shortlist never admits an index outside the k
// most probable tokens.
func TestSamplerTopK(t *testing.T) {
	probs := []float64{0.3, 0.25, 0.2, 0.15, 0.05, 0.05}
	s := NewSampler(SamplerConfig{Seed: 3, Temperature: 1.0, TopK: 2, TopP: 1.0})
	for i := 0; i < 50; i++ {
		idx := s.Sample(probs)
		if idx != 0 && idx != 1 {
			t.Fatalf("top-k sampling returned index %d outside the top 2", idx)
		}
	}
}

// TestSamplerTopP ensures that setting TopP less than 1 restricts sampling to
// a prefix of candidates. The highest probability alone exceeds TopP, so only
// the first index should ever be returned.
func TestSamplerTopP(t *testing.T) {
	probs := []float64{0.9, 0.04, 0.03, 0.02, 0.01}
	s := NewSampler(SamplerConfig{Seed: 7, Temperature: 1.0, TopK: 5, TopP: 0.5})
	for i := 0; i < 10; i++ {
		idx := s.Sample(probs)
		if idx != 0 {
			t.Fatalf("top-p sampling returned unexpected index %d", idx)
		}
	}
}

// TestSamplerLowTemperature checks that a very low temperature all but
// eliminates mass outside the argmax.
func TestSamplerLowTemperature(t *testing.T) {
	probs := []float64{0.6, 0.4}
	s := NewSampler(SamplerConfig{Seed: 5, Temperature: 0.01, TopK: 2, TopP: 1.0})
	for i := 0; i < 20; i++ {
		idx := s.Sample(probs)
		if idx != 0 {
			t.Fatalf("low-temperature sampling returned index %d", idx)
		}
	}
}

// TestSamplerMinP checks that min-p filtering drops tokens far below the top
// weight.
func TestSamplerMinP(t *testing.T) {
	probs := []float64{0.7, 0.2, 0.05, 0.05}
	s := NewSampler(SamplerConfig{Seed: 11, Temperature: 1.0, TopK: 4, TopP: 1.0, MinP: 0.5})
	// Only indices whose weight is at least half the top weight survive;
	// 0.2/0.7 < 0.5, so index 0 is the sole candidate.
	for i := 0; i < 20; i++ {
		idx := s.Sample(probs)
		if idx != 0 {
			t.Fatalf("min-p sampling returned unexpected index %d", idx)
		}
	}
}

func TestArgmaxTieBreaksLow(t *testing.T) {
	if got := argmax([]float64{0.25, 0.25, 0.25, 0.25}); got != 0 {
		t.Fatalf("argmax tie-break: got %d, want 0", got)
	}
}
