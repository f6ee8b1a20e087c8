// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the repository directory.
const FileName = "config.yaml"

// FormatVersion is bumped when the on-disk layout changes.
const FormatVersion = "1"

type Compression struct {
	Enabled bool `yaml:"enabled"`
	MinSize int  `yaml:"min_size"` // bytes
	Level   int  `yaml:"level"`    // 1=fastest .. 4=best
}

type Config struct {
	Name        string        `yaml:"name,omitempty"`
	Version     string        `yaml:"version"`
	Created     time.Time     `yaml:"created"`
	LogLevel    string        `yaml:"log_level"`    // debug, info, warn, error
	LockTimeout time.Duration `yaml:"lock_timeout"` // how long to wait for the repository lock
	CacheSize   int           `yaml:"cache_size"`   // blobs kept in memory per invocation
	Compression Compression   `yaml:"compression"`
}

func Default() *Config {
	return &Config{
		Version:     FormatVersion,
		LogLevel:    "warn",
		LockTimeout: 2 * time.Second,
		CacheSize:   256,
		Compression: Compression{
			Enabled: true,
			MinSize: 1024,
			Level:   2,
		},
	}
}

// Load reads the config at path. A missing file yields the defaults;
// zero fields in an existing file are filled from the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fill()

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func (c *Config) fill() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = def.LockTimeout
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	if c.Compression.MinSize <= 0 {
		c.Compression.MinSize = def.Compression.MinSize
	}
	if c.Compression.Level <= 0 {
		c.Compression.Level = def.Compression.Level
	}
}
