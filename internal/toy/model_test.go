package toy

import (
	"math"
	"testing"

	"github.com/samcharles93/trellis/internal/tensor"
)

func TestNextDistributionIsValid(t *testing.T) {
	m := NewToyLM(16, 8, 1)
	dist, err := m.NextDistribution([]int{3, 7, 2})
	if err != nil {
		t.Fatalf("next distribution: %v", err)
	}
	if len(dist) != 16 {
		t.Fatalf("expected 16 probabilities, got %d", len(dist))
	}
	if err := tensor.ValidateSlice(dist); err != nil {
		t.Fatalf("invalid distribution: %v", err)
	}
}

func TestSameSeedSameModel(t *testing.T) {
	a := NewToyLM(16, 8, 42)
	b := NewToyLM(16, 8, 42)
	da, _ := a.NextDistribution([]int{5})
	db, _ := b.NextDistribution([]int{5})
	for i := range da {
		if da[i] != db[i] {
			t.Fatal("same seed produced different distributions")
		}
	}

	c := NewToyLM(16, 8, 43)
	dc, _ := c.NextDistribution([]int{5})
	same := true
	for i := range da {
		if da[i] != dc[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical distributions")
	}
}

func TestEmptyHistoryAndOutOfRangeTokens(t *testing.T) {
	m := NewToyLM(8, 4, 1)

	empty, err := m.NextDistribution(nil)
	if err != nil {
		t.Fatalf("empty history: %v", err)
	}
	asZero, err := m.NextDistribution([]int{0})
	if err != nil {
		t.Fatalf("token 0: %v", err)
	}
	for i := range empty {
		if empty[i] != asZero[i] {
			t.Fatal("empty history should behave like token 0")
		}
	}

	wrapped, err := m.NextDistribution([]int{8 + 3})
	if err != nil {
		t.Fatalf("out-of-range token: %v", err)
	}
	direct, _ := m.NextDistribution([]int{3})
	for i := range wrapped {
		if wrapped[i] != direct[i] {
			t.Fatal("out-of-range token should wrap modulo vocab")
		}
	}
}

func TestReturnedSliceIsRetainable(t *testing.T) {
	m := NewToyLM(8, 4, 1)
	first, _ := m.NextDistribution([]int{1})
	saved := make([]float64, len(first))
	copy(saved, first)

	if _, err := m.NextDistribution([]int{2}); err != nil {
		t.Fatalf("second call: %v", err)
	}
	var drift float64
	for i := range first {
		drift += math.Abs(first[i] - saved[i])
	}
	if drift != 0 {
		t.Fatal("earlier distribution mutated by later call")
	}
}
