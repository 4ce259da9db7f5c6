package webproxy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file.
// All durations are in seconds; zero values fall back to defaults.
type FileConfig struct {
	// Cache provider to use: "memory" or "sqlite".
	Provider string `yaml:"provider"`
	// Freshness lifetime for responses without explicit expiry.
	DefaultMaxAge int `yaml:"defaultMaxAge"`
	// Bound on establishing origin connections.
	DialTimeout int `yaml:"dialTimeout"`
	// Bound on receiving the complete origin response.
	ResponseTimeout int `yaml:"responseTimeout"`
}

func GetConfig(filename string) (FileConfig, error) {
	var config FileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", filename, err)
	}
	return config, nil
}

// Apply merges the file values into a server config.
func (f FileConfig) Apply(config *Config) {
	if f.DefaultMaxAge > 0 {
		config.DefaultMaxAge = time.Duration(f.DefaultMaxAge) * time.Second
	}
	if f.DialTimeout > 0 {
		config.DialTimeout = time.Duration(f.DialTimeout) * time.Second
	}
	if f.ResponseTimeout > 0 {
		config.ResponseTimeout = time.Duration(f.ResponseTimeout) * time.Second
	}
}
