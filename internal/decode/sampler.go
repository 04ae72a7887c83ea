package decode

import (
	"math"
	"math/rand"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Seed        int64
	Temperature float64
	TopK        int
	TopP        float64
	MinP        float64
}

// Sampler draws token indices from single-step categorical distributions.
// A Temperature of zero (or below) selects greedy argmax decoding.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	topIdx []int
	topVal []float64
	weight []float64
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Sample draws a single index from the provided probability vector. The
// sample process involves the following steps:
//
//  1. If the sampler is greedy (or TopK==1 with TopP>=1 and Temperature==1)
//     the argmax index is returned.
//  2. The indices of the top k probabilities are selected.
//  3. Each shortlisted probability is re-weighted by the temperature,
//     p^(1/T), computed in log-space relative to the shortlist maximum for
//     stability, and the weights are normalised.
//  4. If MinP>0, entries below MinP times the top weight are dropped and the
//     remainder re-normalised.
//  5. If TopP<1, the shortlist is truncated when the cumulative weight
//     reaches TopP (the nucleus).
//  6. A random value is drawn from [0,1) and used to select an index from the
//     truncated distribution.
func (s *Sampler) Sample(probs []float64) int {
	if s.greedy || (s.cfg.TopK == 1 && s.cfg.TopP >= 1 && s.cfg.Temperature == 1) {
		return argmax(probs)
	}

	k := min(s.cfg.TopK, len(probs))
	topIdx, topVal := s.topK(probs, k)
	if len(topVal) == 0 {
		return 0
	}

	// Temperature in log-space. The shortlist is sorted descending, so
	// topVal[0] is the reference; zero probabilities get zero weight.
	invTemp := 1.0 / s.cfg.Temperature
	if cap(s.weight) < len(topVal) {
		s.weight = make([]float64, len(topVal))
	}
	weight := s.weight[:len(topVal)]
	var sum float64
	for i, p := range topVal {
		var w float64
		if p > 0 && topVal[0] > 0 {
			w = math.Exp((math.Log(p) - math.Log(topVal[0])) * invTemp)
		}
		weight[i] = w
		sum += w
	}
	if sum == 0 {
		return topIdx[0]
	}
	invSum := 1.0 / sum
	for i := range weight {
		weight[i] *= invSum
	}

	if s.cfg.MinP > 0 {
		threshold := weight[0] * s.cfg.MinP
		newLen := 0
		var newSum float64
		for i := range weight {
			if weight[i] >= threshold {
				weight[newLen] = weight[i]
				topIdx[newLen] = topIdx[i]
				newSum += weight[i]
				newLen++
			}
		}
		if newLen < len(weight) {
			weight = weight[:newLen]
			if newSum > 0 {
				scale := 1.0 / newSum
				for i := range weight {
					weight[i] *= scale
				}
			}
		}
	}

	cut := len(weight)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range weight {
			c += weight[i]
			if c >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	r := s.rng.Float64()
	var c float64
	for i := 0; i < cut; i++ {
		c += weight[i]
		if r <= c {
			return topIdx[i]
		}
	}

	return topIdx[cut-1]
}

// argmax returns the index of the maximum value in the slice, preferring the
// lower index on ties. If the slice is empty it panics.
func argmax(x []float64) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// topK returns the indices and values of the k largest probabilities. The
// returned slices are ordered from largest to smallest by value, ties keeping
// the lower index first. This is an O(V*K) algorithm suitable for small K.
func (s *Sampler) topK(probs []float64, k int) ([]int, []float64) {
	if k <= 0 {
		return nil, nil
	}
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float64, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, v := range probs {
		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)

		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	if len(topIdx) == 0 {
		return []int{0}, []float64{0}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}
