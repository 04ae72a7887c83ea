package main

import "github.com/urfave/cli/v3"

var (
	vocabSize  int64
	hiddenSize int64
	modelSeed  int64
	logLevel   string
	logFormat  string
	debug      bool
)

func toyModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "vocab",
			Aliases:     []string{"v"},
			Usage:       "toy model vocabulary size",
			Value:       64,
			Destination: &vocabSize,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "toy model hidden size",
			Value:       32,
			Destination: &hiddenSize,
		},
		&cli.Int64Flag{
			Name:        "model-seed",
			Aliases:     []string{"model_seed"},
			Usage:       "seed for the toy model weights",
			Value:       1,
			Destination: &modelSeed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
