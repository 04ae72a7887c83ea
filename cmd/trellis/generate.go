package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/trellis/internal/decode"
	"github.com/samcharles93/trellis/internal/logger"
	"github.com/samcharles93/trellis/internal/toy"
)

func generateCmd() *cli.Command {
	var (
		prompt    string
		steps     int64
		temp      float64
		topK      int64
		topP      float64
		minP      float64
		seed      int64
		beamSize  int64
		eos       int64
		eosPolicy string
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate tokens from the built-in toy model",
		Flags: append(toyModelFlags(),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "comma-separated prompt token ids",
				Destination: &prompt,
			},
			&cli.Int64Flag{
				Name:        "steps",
				Aliases:     []string{"n"},
				Usage:       "number of tokens to generate",
				Value:       16,
				Destination: &steps,
			},
			&cli.Float64Flag{
				Name:        "temp",
				Aliases:     []string{"temperature", "t"},
				Usage:       "sampling temperature (0 = greedy)",
				Value:       0.8,
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Aliases:     []string{"top_k", "topk"},
				Usage:       "top-k sampling parameter",
				Value:       40,
				Destination: &topK,
			},
			&cli.Float64Flag{
				Name:        "top-p",
				Aliases:     []string{"top_p", "topp"},
				Usage:       "top-p (nucleus) sampling parameter",
				Value:       0.95,
				Destination: &topP,
			},
			&cli.Float64Flag{
				Name:        "min-p",
				Aliases:     []string{"min_p", "minp"},
				Usage:       "min-p sampling parameter (0.0 = disabled)",
				Value:       0,
				Destination: &minP,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling seed",
				Value:       42,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "beam-size",
				Aliases:     []string{"beam_size", "k"},
				Usage:       "use beam search with this many beams instead of sampling",
				Value:       1,
				Destination: &beamSize,
			},
			&cli.Int64Flag{
				Name:        "eos",
				Usage:       "end-of-sequence token id (-1 = disabled)",
				Value:       -1,
				Destination: &eos,
			},
			&cli.StringFlag{
				Name:        "eos-policy",
				Aliases:     []string{"eos_policy"},
				Usage:       "beam end-of-sequence policy (none, freeze)",
				Value:       "none",
				Destination: &eosPolicy,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			applyGenerateConfig(c, LoadConfig(), &temp, &topK, &topP, &minP, &seed, &steps, &beamSize)

			promptToks, err := parsePrompt(prompt)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: parse prompt: %v", err), 1)
			}

			model := toy.NewToyLM(int(vocabSize), int(hiddenSize), modelSeed)
			log.Debug("toy model ready", "vocab", vocabSize, "hidden", hiddenSize, "seed", modelSeed)

			if beamSize > 1 {
				policy := decode.EOSNone
				switch eosPolicy {
				case "none":
				case "freeze":
					policy = decode.EOSFreeze
				default:
					return cli.Exit("error: eos-policy must be none or freeze", 1)
				}
				dec := &decode.BeamDecoder{
					Provider: model,
					BeamSize: int(beamSize),
					EOS:      int(eos),
					Policy:   policy,
				}
				beams, scores, err := dec.Decode(ctx, promptToks, int(steps))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				for k := range beams {
					fmt.Printf("beam %d  score=%.6f  tokens=%v\n", k, scores[k], beams[k])
				}
				return nil
			}

			gen := &decode.Generator{
				Provider: model,
				Sampler: decode.NewSampler(decode.SamplerConfig{
					Seed:        seed,
					Temperature: temp,
					TopK:        int(topK),
					TopP:        topP,
					MinP:        minP,
				}),
				EOS: int(eos),
			}
			toks, err := gen.Run(ctx, promptToks, int(steps), nil)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Printf("tokens=%v\n", toks[len(promptToks):])
			return nil
		},
	}
}

// parsePrompt turns a comma-separated list of token ids into a slice. An
// empty string is an empty prompt.
func parsePrompt(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	toks := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", part, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("token %d: negative token id", v)
		}
		toks = append(toks, v)
	}
	return toks, nil
}
