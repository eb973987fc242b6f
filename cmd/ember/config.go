package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the ember configuration file (~/.config/ember/config.yaml).
// Sampling fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	ModelsDir string `yaml:"models_dir"`
	Backend   string `yaml:"backend"`

	// Sampling defaults
	Temperature       *float64 `yaml:"temperature"`
	TopK              *int64   `yaml:"top_k"`
	TopP              *float64 `yaml:"top_p"`
	RepetitionPenalty *float64 `yaml:"repetition_penalty"`
	LengthPenalty     *float64 `yaml:"length_penalty"`
	RegulationStart   *int64   `yaml:"regulation_start"`
	MaxNewTokens      *int64   `yaml:"max_new_tokens"`
	MaxTimeSeconds    *int64   `yaml:"max_time"`
	Seed              *int64   `yaml:"seed"`

	// Hub
	HubEndpoint string `yaml:"hub_endpoint"`

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
	return filepath.Join(dir, "ember", "config.yaml")
}

// applyCommonConfig applies config file defaults shared by every command
// when the corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.ModelsDir != "" && !c.IsSet("models-path") {
		modelsPath = cfg.ModelsDir
	}
	if cfg.Backend != "" && !c.IsSet("backend") {
		backend = cfg.Backend
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyChatConfig applies config file sampling defaults to chat command
// variables.
func applyChatConfig(c *cli.Command, cfg Config,
	temp *float64, topK *int64, topP *float64, repetitionPenalty *float64,
	lengthPenalty *float64, regulationStart *int64, maxNewTokens *int64,
	maxTime *int64, seed *int64,
) {
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") && !c.IsSet("top_k") && !c.IsSet("topk") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") && !c.IsSet("top_p") && !c.IsSet("topp") {
		*topP = *cfg.TopP
	}
	if cfg.RepetitionPenalty != nil && !c.IsSet("repetition-penalty") && !c.IsSet("repetition_penalty") {
		*repetitionPenalty = *cfg.RepetitionPenalty
	}
	if cfg.LengthPenalty != nil && !c.IsSet("length-penalty") && !c.IsSet("length_penalty") {
		*lengthPenalty = *cfg.LengthPenalty
	}
	if cfg.RegulationStart != nil && !c.IsSet("regulation-start") && !c.IsSet("regulation_start") {
		*regulationStart = *cfg.RegulationStart
	}
	if cfg.MaxNewTokens != nil && !c.IsSet("max-new-tokens") && !c.IsSet("n") {
		*maxNewTokens = *cfg.MaxNewTokens
	}
	if cfg.MaxTimeSeconds != nil && !c.IsSet("max-time") {
		*maxTime = *cfg.MaxTimeSeconds
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
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
