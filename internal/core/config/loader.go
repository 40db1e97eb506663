package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.File.Path == "" {
		cfg.Storage.File.Path = "data/extraction_status.json"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/extraction_status.db"
	}
	if cfg.Retry.Interval == 0 {
		cfg.Retry.Interval = 60 * time.Second
	}
	if cfg.Retry.Retention == 0 {
		cfg.Retry.Retention = 30 * 24 * time.Hour
	}
	if cfg.Retry.Concurrency == 0 {
		cfg.Retry.Concurrency = 4
	}
	if cfg.Recovery.RemediationTimeout == 0 {
		cfg.Recovery.RemediationTimeout = 30 * time.Second
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 10 * time.Second
	}
}
