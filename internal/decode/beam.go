package decode

import (
	"math"

	"github.com/samcharles93/trellis/internal/tensor"
)

// Result holds the output of a batched beam search: Tokens[b][k] is the k-th
// best token chain for batch element b, Scores[b][k] its cumulative
// log-probability. Within each batch element the beams are sorted by score
// descending.
type Result struct {
	Tokens [][][]int
	Scores [][]float64
}

// BeamSearch decodes the top beamSize token chains per batch element from a
// probability tensor of shape (batch, steps, vocab).
//
// Scores are cumulative natural-log probabilities accumulated in float64.
// Zero-probability entries map to -Inf and are only ever selected when fewer
// than beamSize candidates have positive probability. Ties are broken towards
// the lower flattened candidate index (lower parent beam, then lower token),
// so identical inputs always produce identical output.
//
// The result is the standard beam-search approximation of the best chains,
// not an exact top-K over the full exponential sequence space.
func BeamSearch(p *tensor.Dist, beamSize int) (*Result, error) {
	if p == nil {
		return nil, invalidArgf("nil probability tensor")
	}
	if p.Steps < 1 {
		return nil, invalidArgf("sequence length must be at least 1, got %d", p.Steps)
	}
	if beamSize < 1 {
		return nil, invalidArgf("beam size must be positive, got %d", beamSize)
	}
	if beamSize > p.Vocab {
		return nil, invalidArgf("beam size %d exceeds vocabulary size %d", beamSize, p.Vocab)
	}
	if err := p.Validate(); err != nil {
		return nil, invalidArgf("%v", err)
	}

	res := &Result{
		Tokens: make([][][]int, p.Batch),
		Scores: make([][]float64, p.Batch),
	}
	for b := 0; b < p.Batch; b++ {
		res.Tokens[b], res.Scores[b] = beamSearchOne(p, b, beamSize)
	}
	return res, nil
}

// beamSearchOne runs beam search for a single batch element. Chains are kept
// as per-step backpointers (parent beam, appended token) and materialised once
// at the end, so no per-step chain reallocation takes place.
func beamSearchOne(p *tensor.Dist, b, beamSize int) ([][]int, []float64) {
	vocab := p.Vocab
	parents := make([][]int, p.Steps)
	chosen := make([][]int, p.Steps)

	sel := newTopSelector(beamSize)

	// Step 0: the beams are simply the top tokens of the first slice.
	for v, prob := range p.Slice(b, 0) {
		sel.offer(v, logProb(prob))
	}
	chosen[0] = append([]int(nil), sel.idx...)
	parents[0] = make([]int, len(sel.idx))
	scores := append([]float64(nil), sel.val...)

	for t := 1; t < p.Steps; t++ {
		row := p.Slice(b, t)
		sel.reset()
		// Flattened candidate space of size beamSize*vocab: candidate j
		// extends parent j/vocab with token j%vocab. Candidates are
		// offered in ascending flattened order, which the selector's
		// stable insertion turns into the required tie-break.
		for k, parentScore := range scores {
			for v, prob := range row {
				sel.offer(k*vocab+v, parentScore+logProb(prob))
			}
		}
		par := make([]int, beamSize)
		tok := make([]int, beamSize)
		for k, flat := range sel.idx {
			par[k] = flat / vocab
			tok[k] = flat % vocab
		}
		parents[t] = par
		chosen[t] = tok
		scores = append(scores[:0], sel.val...)
	}

	// Walk the backpointers to materialise each chain front to back.
	out := make([][]int, beamSize)
	for k := 0; k < beamSize; k++ {
		chain := make([]int, p.Steps)
		beam := k
		for t := p.Steps - 1; t >= 0; t-- {
			chain[t] = chosen[t][beam]
			beam = parents[t][beam]
		}
		out[k] = chain
	}
	return out, append([]float64(nil), scores...)
}

// logProb maps a probability to log-space, clamping zeros to -Inf instead of
// letting math.Log produce them implicitly alongside NaN for negatives.
// Negative inputs are rejected by validation before this is reached.
func logProb(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return math.Log(p)
}

// topSelector keeps the k highest-scoring candidates seen so far, ordered by
// score descending. Insertion moves past strictly smaller values only, so
// among equal scores the candidate offered first keeps the better rank. This
// is the same O(N*K) insertion shortlist the sampler uses; K is the beam size,
// so quadratic behaviour in K is not a concern.
type topSelector struct {
	k   int
	idx []int
	val []float64
}

func newTopSelector(k int) *topSelector {
	return &topSelector{
		k:   k,
		idx: make([]int, 0, k+1),
		val: make([]float64, 0, k+1),
	}
}

func (s *topSelector) reset() {
	s.idx = s.idx[:0]
	s.val = s.val[:0]
}

func (s *topSelector) offer(index int, score float64) {
	pos := len(s.val)
	for pos > 0 && s.val[pos-1] < score {
		pos--
	}
	if pos >= s.k {
		return
	}

	s.idx = append(s.idx, 0)
	s.val = append(s.val, 0)
	copy(s.idx[pos+1:], s.idx[pos:])
	copy(s.val[pos+1:], s.val[pos:])
	s.idx[pos] = index
	s.val[pos] = score

	if len(s.val) > s.k {
		s.idx = s.idx[:s.k]
		s.val = s.val[:s.k]
	}
}
