package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSpeedCeiling   = 70.0
	DefaultMeanSpeedLimit = 60.0
)

// Config holds the pipeline thresholds.
type Config struct {
	// Rows whose derived speed exceeds this are dropped.
	SpeedCeiling float64 `yaml:"speed_ceiling"`
	// A batch mean above this is reported as an anomaly. Rows are kept.
	MeanSpeedLimit float64 `yaml:"mean_speed_limit"`
}

func DefaultConfig() Config {
	return Config{
		SpeedCeiling:   DefaultSpeedCeiling,
		MeanSpeedLimit: DefaultMeanSpeedLimit,
	}
}

// LoadConfig reads YAML thresholds from path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SpeedCeiling <= 0 {
		return errors.New("speed_ceiling must be positive")
	}
	if c.MeanSpeedLimit <= 0 {
		return errors.New("mean_speed_limit must be positive")
	}
	return nil
}
