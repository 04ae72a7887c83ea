package decode

import (
	"context"
	"fmt"
)

// Provider supplies next-token distributions for a token history. It is the
// abstract boundary to the language model: the decoding loops never see model
// weights, only the categorical distribution at the current position.
type Provider interface {
	// Vocab returns the fixed vocabulary size every distribution spans.
	Vocab() int
	// NextDistribution returns the probability distribution over the next
	// token given the history so far. The returned slice has length Vocab
	// and must sum to 1 within tolerance. Implementations must not reuse
	// the returned slice across calls: beam decoding holds several
	// distributions at once.
	NextDistribution(history []int) ([]float64, error)
}

// Generator runs a sampling generation session against a Provider.
type Generator struct {
	Provider Provider
	Sampler  *Sampler

	// EOS is the end-of-sequence token; generation stops before emitting
	// it. Negative disables the check.
	EOS int
}

// Run generates up to steps tokens after the prompt, streaming each emitted
// token to stream when non-nil. It returns the full token history including
// the prompt. Generation stops early on EOS or context cancellation; a
// cancelled run returns the tokens produced so far along with the context
// error.
func (g *Generator) Run(ctx context.Context, prompt []int, steps int, stream func(tok int)) ([]int, error) {
	if g.Provider == nil {
		return nil, invalidArgf("generator has no provider")
	}
	if g.Sampler == nil {
		return nil, invalidArgf("generator has no sampler")
	}

	toks := append([]int(nil), prompt...)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return toks, err
		}
		dist, err := g.Provider.NextDistribution(toks)
		if err != nil {
			return toks, fmt.Errorf("next distribution at step %d: %w", i, err)
		}
		if len(dist) != g.Provider.Vocab() {
			return toks, invalidArgf("provider returned %d probabilities, want %d", len(dist), g.Provider.Vocab())
		}
		next := g.Sampler.Sample(dist)
		if g.EOS >= 0 && next == g.EOS {
			break
		}
		toks = append(toks, next)
		if stream != nil {
			stream(next)
		}
	}
	return toks, nil
}

// EOSPolicy controls how a provider-driven beam decode treats beams that have
// produced the end-of-sequence token.
type EOSPolicy int

const (
	// EOSNone applies no special handling: every beam keeps extending for
	// the full step budget, matching the tensor-input BeamSearch contract.
	EOSNone EOSPolicy = iota
	// EOSFreeze stops extending a beam once it emits EOS: its chain and
	// score are carried forward unchanged and still compete for a slot at
	// every subsequent step.
	EOSFreeze
)

// BeamDecoder runs beam search against a Provider instead of a precomputed
// probability tensor, so each surviving beam is scored under its own history.
type BeamDecoder struct {
	Provider Provider
	BeamSize int

	// EOS and Policy configure end-of-sequence handling; EOS is ignored
	// under EOSNone.
	EOS    int
	Policy EOSPolicy
}

type liveBeam struct {
	toks     []int
	score    float64
	finished bool
}

// Decode extends the prompt by up to steps tokens per beam and returns the
// generated suffixes (without the prompt) with their cumulative
// log-probabilities, sorted descending. Under EOSFreeze a finished beam's
// suffix ends at its EOS token and may be shorter than steps.
func (d *BeamDecoder) Decode(ctx context.Context, prompt []int, steps int) ([][]int, []float64, error) {
	if d.Provider == nil {
		return nil, nil, invalidArgf("beam decoder has no provider")
	}
	vocab := d.Provider.Vocab()
	if d.BeamSize < 1 {
		return nil, nil, invalidArgf("beam size must be positive, got %d", d.BeamSize)
	}
	if d.BeamSize > vocab {
		return nil, nil, invalidArgf("beam size %d exceeds vocabulary size %d", d.BeamSize, vocab)
	}
	if steps < 1 {
		return nil, nil, invalidArgf("steps must be at least 1, got %d", steps)
	}

	beams := []liveBeam{{toks: append([]int(nil), prompt...)}}
	sel := newTopSelector(d.BeamSize)

	for t := 0; t < steps; t++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// Gather each live beam's distribution up front; finished beams
		// contribute a single self-candidate instead.
		dists := make([][]float64, len(beams))
		for j := range beams {
			if beams[j].finished {
				continue
			}
			dist, err := d.Provider.NextDistribution(beams[j].toks)
			if err != nil {
				return nil, nil, fmt.Errorf("next distribution at step %d: %w", t, err)
			}
			if len(dist) != vocab {
				return nil, nil, invalidArgf("provider returned %d probabilities, want %d", len(dist), vocab)
			}
			dists[j] = dist
		}

		// Flattened candidate space: beam j token v is j*(vocab+1)+v,
		// a frozen beam's self-candidate is j*(vocab+1)+vocab. Offering
		// in ascending order keeps the tie-break on the lower parent
		// beam, then the lower token.
		sel.reset()
		for j := range beams {
			base := j * (vocab + 1)
			if beams[j].finished {
				sel.offer(base+vocab, beams[j].score)
				continue
			}
			for v, prob := range dists[j] {
				sel.offer(base+v, beams[j].score+logProb(prob))
			}
		}
		if len(sel.idx) == 0 {
			return nil, nil, invalidArgf("no candidates at step %d", t)
		}

		next := make([]liveBeam, len(sel.idx))
		for k, flat := range sel.idx {
			parent := flat / (vocab + 1)
			tok := flat % (vocab + 1)
			if tok == vocab {
				next[k] = beams[parent]
				continue
			}
			chain := make([]int, len(beams[parent].toks), len(beams[parent].toks)+1)
			copy(chain, beams[parent].toks)
			nb := liveBeam{
				toks:  append(chain, tok),
				score: sel.val[k],
			}
			if d.Policy == EOSFreeze && d.EOS >= 0 && tok == d.EOS {
				nb.finished = true
			}
			next[k] = nb
		}
		beams = next

		if d.Policy == EOSFreeze {
			all := true
			for j := range beams {
				if !beams[j].finished {
					all = false
					break
				}
			}
			if all {
				break
			}
		}
	}

	chains := make([][]int, len(beams))
	scores := make([]float64, len(beams))
	for j := range beams {
		chains[j] = beams[j].toks[len(prompt):]
		scores[j] = beams[j].score
	}
	return chains, scores, nil
}

// Greedy decodes the single argmax chain from a provider, a convenience
// equivalent to a beam size of 1 without the bookkeeping.
func Greedy(ctx context.Context, p Provider, prompt []int, steps int, eos int) ([]int, float64, error) {
	if p == nil {
		return nil, 0, invalidArgf("nil provider")
	}
	toks := append([]int(nil), prompt...)
	var score float64
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		dist, err := p.NextDistribution(toks)
		if err != nil {
			return nil, 0, fmt.Errorf("next distribution at step %d: %w", i, err)
		}
		next := argmax(dist)
		if eos >= 0 && next == eos {
			break
		}
		toks = append(toks, next)
		score += logProb(dist[next])
	}
	return toks[len(prompt):], score, nil
}
