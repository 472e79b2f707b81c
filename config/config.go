// Package config holds launcher settings, loadable from a YAML file
// with environment variable overrides. Library packages never read
// config themselves; the launcher translates this into explicit
// options.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full launcher configuration.
type Config struct {
	ProjectPath string `yaml:"project" env:"ANNOTATE_PROJECT"`
	ImageDir    string `yaml:"image_dir" env:"ANNOTATE_IMAGE_DIR"`
	ModelPath   string `yaml:"model" env:"ANNOTATE_MODEL"`
	OutputDir   string `yaml:"output_dir" env:"ANNOTATE_OUTPUT_DIR"`

	Backend    string  `yaml:"backend" env:"ANNOTATE_BACKEND" env-default:"onnxruntime"`
	Confidence float32 `yaml:"confidence" env:"ANNOTATE_CONFIDENCE" env-default:"0.25"`
	NMS        float32 `yaml:"nms" env:"ANNOTATE_NMS" env-default:"0.45"`
	InputSize  int     `yaml:"input_size" env:"ANNOTATE_INPUT_SIZE" env-default:"640"`

	Ratios   string `yaml:"ratios" env:"ANNOTATE_RATIOS" env-default:"70,15,15"`
	Seed     int64  `yaml:"seed" env:"ANNOTATE_SEED" env-default:"0"`
	Previews bool   `yaml:"previews" env:"ANNOTATE_PREVIEWS" env-default:"false"`

	CheckpointEvery int    `yaml:"checkpoint_every" env:"ANNOTATE_CHECKPOINT_EVERY" env-default:"10"`
	LogLevel        string `yaml:"log_level" env:"ANNOTATE_LOG_LEVEL" env-default:"info"`
}

// Load reads the YAML file at path plus environment overrides. An empty
// path reads the environment alone, so the binary runs without any
// config file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}
