package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration, after flags, environment,
// and the optional config file have been merged.
type Config struct {
	Addr          string
	DataDir       string
	WebhookURL    string
	WebhookSecret string
}

// FileConfig mirrors the optional YAML config file. Values act as defaults
// under explicit command-line flags.
type FileConfig struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
	Webhook struct {
		URL    string `yaml:"url"`
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`
}

func LoadFileConfig(path string) (*FileConfig, error) {
	cfg := &FileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
