// Package config provides configuration and schema loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for reclaim configuration.
	DefaultConfigDir = ".reclaim"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultSchemaFile is the default graph schema file name.
	DefaultSchemaFile = "schema.yaml"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	SQLite SQLiteConfig `yaml:"sqlite,omitempty"`
	Engine EngineConfig `yaml:"engine,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path,omitempty"`
}

// EngineConfig holds tunables of the delete/restore engine.
type EngineConfig struct {
	// RetentionWindow is how long an active manifest stays restorable.
	RetentionWindow time.Duration `yaml:"retention_window,omitempty"`
	// ReaperInterval is how often expired manifests are scanned for.
	ReaperInterval time.Duration `yaml:"reaper_interval,omitempty"`
	// LockTimeout bounds the wait for advisory locks per operation.
	LockTimeout time.Duration `yaml:"lock_timeout,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		SQLite: SQLiteConfig{
			Path: filepath.Join(DefaultConfigDir, "reclaim.db"),
		},
		Engine: EngineConfig{
			RetentionWindow: 30 * 24 * time.Hour,
			ReaperInterval:  time.Hour,
			LockTimeout:     10 * time.Second,
		},
	}
}

// Load loads configuration from the .reclaim directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'reclaim init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("RECLAIM_DB_PATH"); path != "" {
		c.SQLite.Path = path
	}
}

// Save writes the config to the .reclaim directory in the given path.
func (c *Config) Save(basePath string) error {
	dir := filepath.Join(basePath, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configFile := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
