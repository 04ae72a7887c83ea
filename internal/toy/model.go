// Package toy provides a minimal deterministic language model used for
// testing and demonstrating the decoding strategies. It is not a trained
// model: weights are seeded pseudo-random values, so its distributions are
// arbitrary but reproducible and well-formed.
package toy

import (
	"github.com/samcharles93/trellis/internal/norm"
	"github.com/samcharles93/trellis/internal/tensor"
)

// ToyLM is a tiny embedding-projection model. Each call to NextDistribution
// embeds the last token of the history, layer-normalizes the hidden state and
// projects it back to vocabulary logits, which a softmax turns into a
// categorical distribution. It implements decode.Provider.
type ToyLM struct {
	vocab  int
	hidden int

	emb  tensor.Mat // [Vocab x Hidden] embedding matrix
	proj tensor.Mat // [Hidden x Vocab] projection weights
	ln   *norm.LayerNorm

	h      []float64 // scratch space [Hidden]
	logits []float64 // scratch space [Vocab]
}

// NewToyLM constructs a model with the given vocabulary and hidden size. The
// embedding and projection matrices are filled with random values derived
// from the provided seed; the same seed always yields the same model.
func NewToyLM(vocab, hidden int, seed int64) *ToyLM {
	m := &ToyLM{
		vocab:  vocab,
		hidden: hidden,
		emb:    tensor.NewMat(vocab, hidden),
		proj:   tensor.NewMat(hidden, vocab),
		ln:     norm.NewLayerNorm(hidden),
		h:      make([]float64, hidden),
		logits: make([]float64, vocab),
	}
	tensor.FillRand(&m.emb, seed+11)
	tensor.FillRand(&m.proj, seed+23)
	return m
}

// Vocab returns the vocabulary size.
func (m *ToyLM) Vocab() int {
	return m.vocab
}

// NextDistribution computes the next-token distribution for the history. The
// model only conditions on the last token; an empty history behaves as if
// token 0 had been seen. Token indices outside [0, Vocab) are reduced modulo
// Vocab. A freshly allocated slice is returned on every call so callers may
// retain it.
func (m *ToyLM) NextDistribution(history []int) ([]float64, error) {
	tok := 0
	if len(history) > 0 {
		tok = history[len(history)-1]
	}
	if tok < 0 || tok >= m.vocab {
		tok = tok % m.vocab
		if tok < 0 {
			tok += m.vocab
		}
	}

	copy(m.h, m.emb.Row(tok))
	m.ln.Normalize(m.h)
	tensor.MatVec(m.logits, &m.proj, m.h)

	dist := make([]float64, m.vocab)
	tensor.Softmax(dist, m.logits)
	return dist, nil
}
