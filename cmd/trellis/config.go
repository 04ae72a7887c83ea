package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the trellis configuration file
// (~/.config/trellis/config.yaml). All sampling fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	// Sampling defaults
	Temperature *float64 `yaml:"temperature"`
	TopK        *int64   `yaml:"top_k"`
	TopP        *float64 `yaml:"top_p"`
	MinP        *float64 `yaml:"min_p"`
	Seed        *int64   `yaml:"seed"`
	Steps       *int64   `yaml:"steps"`
	BeamSize    *int64   `yaml:"beam_size"`

	// Toy model
	Vocab     *int64 `yaml:"vocab"`
	Hidden    *int64 `yaml:"hidden"`
	ModelSeed *int64 `yaml:"model_seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "trellis", "config.yaml")
}

// applyGenerateConfig applies config file defaults to generate command
// variables when the corresponding CLI flag was not explicitly set.
func applyGenerateConfig(c *cli.Command, cfg Config,
	temp *float64, topK *int64, topP *float64, minP *float64,
	seed *int64, steps *int64, beamSize *int64,
) {
	applyToyModelConfig(c, cfg)
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") && !c.IsSet("top_k") && !c.IsSet("topk") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") && !c.IsSet("top_p") && !c.IsSet("topp") {
		*topP = *cfg.TopP
	}
	if cfg.MinP != nil && !c.IsSet("min-p") && !c.IsSet("min_p") && !c.IsSet("minp") {
		*minP = *cfg.MinP
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
	if cfg.Steps != nil && !c.IsSet("steps") {
		*steps = *cfg.Steps
	}
	if cfg.BeamSize != nil && !c.IsSet("beam-size") && !c.IsSet("beam_size") {
		*beamSize = *cfg.BeamSize
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyToyModelConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

func applyToyModelConfig(c *cli.Command, cfg Config) {
	if cfg.Vocab != nil && !c.IsSet("vocab") {
		vocabSize = *cfg.Vocab
	}
	if cfg.Hidden != nil && !c.IsSet("hidden") {
		hiddenSize = *cfg.Hidden
	}
	if cfg.ModelSeed != nil && !c.IsSet("model-seed") {
		modelSeed = *cfg.ModelSeed
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
