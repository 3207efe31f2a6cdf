// Package config loads the toolkit's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CollectorConfig configures traffic collection.
type CollectorConfig struct {
	SavePath        string  `yaml:"save_path"`
	Interface       string  `yaml:"interface"`
	SyntheticSeed   int64   `yaml:"synthetic_seed"`
	SyntheticRate   float64 `yaml:"synthetic_rate"`
	AttackRatio     float64 `yaml:"attack_ratio"`
	MetricsDisabled bool    `yaml:"metrics_disabled"`
}

// PipelineConfig configures feature extraction and the transform chain.
type PipelineConfig struct {
	VarianceRetention  float64 `yaml:"variance_retention"`
	TopK               int     `yaml:"top_k"`
	BurstWindowSeconds float64 `yaml:"burst_window_seconds"`
	BurstStrideSeconds float64 `yaml:"burst_stride_seconds"`
	ShuffleSeed        int64   `yaml:"shuffle_seed"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate fills defaults and rejects out-of-range settings.
func (c *Config) Validate() error {
	if c.Collector.SavePath == "" {
		c.Collector.SavePath = "data"
	}
	if c.Collector.SyntheticRate <= 0 {
		c.Collector.SyntheticRate = 100
	}
	if c.Collector.SyntheticSeed == 0 {
		c.Collector.SyntheticSeed = 42
	}
	if c.Collector.AttackRatio < 0 || c.Collector.AttackRatio > 1 {
		return fmt.Errorf("attack_ratio must be in [0, 1], got %v", c.Collector.AttackRatio)
	}
	if c.Collector.AttackRatio == 0 {
		c.Collector.AttackRatio = 0.1
	}

	if c.Pipeline.VarianceRetention == 0 {
		c.Pipeline.VarianceRetention = 0.95
	}
	if c.Pipeline.VarianceRetention <= 0 || c.Pipeline.VarianceRetention > 1 {
		return fmt.Errorf("variance_retention must be in (0, 1], got %v", c.Pipeline.VarianceRetention)
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 20
	}
	if c.Pipeline.BurstWindowSeconds > 0 && c.Pipeline.BurstStrideSeconds <= 0 {
		c.Pipeline.BurstStrideSeconds = c.Pipeline.BurstWindowSeconds
	}
	if c.Pipeline.ShuffleSeed == 0 {
		c.Pipeline.ShuffleSeed = 42
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Validate() // cannot fail on the zero value
	return cfg
}
