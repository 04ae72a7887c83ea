package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/trellis/internal/decode"
	"github.com/samcharles93/trellis/internal/tensor"
)

// tensorFile is the on-disk shape accepted by the decode command: the same
// nested (batch, steps, vocab) array the /v1/beam endpoint takes.
type tensorFile struct {
	Probs [][][]float64 `json:"probs"`
}

func decodeCmd() *cli.Command {
	var (
		inputPath string
		beamSize  int64
		asJSON    bool
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Run beam search over a probability tensor file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to JSON file with a \"probs\" (batch, steps, vocab) tensor",
				Required:    true,
				Destination: &inputPath,
			},
			&cli.Int64Flag{
				Name:        "beam-size",
				Aliases:     []string{"beam_size", "k"},
				Usage:       "number of beams to keep per batch element",
				Value:       3,
				Destination: &beamSize,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result as JSON instead of text",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}
			var tf tensorFile
			if err := json.Unmarshal(data, &tf); err != nil {
				return cli.Exit(fmt.Sprintf("error: parse input: %v", err), 1)
			}

			dist, err := tensor.FromNested(tf.Probs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			result, err := decode.BeamSearch(dist, int(beamSize))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if asJSON {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: encode result: %v", err), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			for b := range result.Tokens {
				fmt.Printf("batch %d:\n", b)
				for k, chain := range result.Tokens[b] {
					fmt.Printf("  beam %d  score=%.6f  tokens=%v\n", k, result.Scores[b][k], chain)
				}
			}
			return nil
		},
	}
}
