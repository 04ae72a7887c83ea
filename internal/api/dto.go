package api

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// BeamRequest is the body of POST /v1/beam: a probability tensor given as
// nested arrays (batch, steps, vocab) plus the beam size.
type BeamRequest struct {
	Probs    [][][]float64 `json:"probs"`
	BeamSize int           `json:"beam_size"`
}

// BeamResponse carries the decoded chains and their cumulative
// log-probabilities, beams sorted by score descending within each batch
// element.
type BeamResponse struct {
	ID     string      `json:"id"`
	Object string      `json:"object"`
	Tokens [][][]int   `json:"tokens"`
	Scores [][]float64 `json:"scores"`
}

// GenerateRequest is the body of POST /v1/generate. Sampling parameters left
// unset fall back to the server defaults; a BeamSize greater than 1 switches
// from sampling to provider-driven beam search.
type GenerateRequest struct {
	Prompt      []int    `json:"prompt"`
	Steps       int      `json:"steps"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MinP        *float64 `json:"min_p,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
	BeamSize    *int     `json:"beam_size,omitempty"`
	EOS         *int     `json:"eos,omitempty"`
	EOSPolicy   string   `json:"eos_policy,omitempty"`
}

// GenerateResponse is the sampling-path response: a single generated token
// sequence (prompt excluded).
type GenerateResponse struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Tokens []int  `json:"tokens"`
}

// BeamGenerateResponse is the beam-path response: one suffix chain and score
// per beam, sorted by score descending.
type BeamGenerateResponse struct {
	ID     string    `json:"id"`
	Object string    `json:"object"`
	Beams  [][]int   `json:"beams"`
	Scores []float64 `json:"scores"`
}

// ResponseError is the error payload wrapped under the "error" key.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func decodeJSON[T any](r io.Reader) (*T, error) {
	var v T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	return &v, nil
}
