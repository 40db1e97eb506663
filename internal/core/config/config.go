package config

import (
	"time"

	"github.com/Basilakis/kai-sub013/internal/extraction/retry"
	redisclient "github.com/Basilakis/kai-sub013/internal/infra/redis"
	"github.com/Basilakis/kai-sub013/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Storage  StorageConfig      `yaml:"storage"`
	Redis    redisclient.Config `yaml:"redis"`
	Retry    retry.Config       `yaml:"retry"`
	Recovery RecoveryConfig     `yaml:"recovery"`
	Catalog  CatalogConfig      `yaml:"catalog"`
}

// RecoveryConfig holds settings for the recovery dispatcher.
type RecoveryConfig struct {
	RemediationTimeout time.Duration `yaml:"remediation_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StorageConfig selects and configures the status store backend.
type StorageConfig struct {
	Backend  string          `yaml:"backend"` // memory, file, sqlite, postgres
	File     FileConfig      `yaml:"file"`
	SQLite   SQLiteConfig    `yaml:"sqlite"`
	Postgres postgres.Config `yaml:"postgres"`
}

// FileConfig holds settings for the whole-file JSON backend.
type FileConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds settings for the embedded SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig holds settings for the terminal catalog sync. An empty URL
// selects the log-only sink.
type CatalogConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}
