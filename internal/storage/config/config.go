package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hedgemm/hmm/internal/domain"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const fileName = "config.yaml"

// DownloadConfig holds settings for file downloads
type DownloadConfig struct {
	BufferSize        int           `yaml:"buffer_size"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RateLimit         int64         `yaml:"rate_limit"` // bytes per second, 0 = unlimited
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	UserAgent         string        `yaml:"user_agent"`
}

// Config holds global application settings
type Config struct {
	CachePath      string         `yaml:"cache_path"`
	Download       DownloadConfig `yaml:"download"`
	UpdateManifest string         `yaml:"update_manifest"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Download: DownloadConfig{
			BufferSize:        64 * 1024,
			MaxAttempts:       3,
			InactivityTimeout: 30 * time.Second,
			UserAgent:         "hmm",
		},
	}
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg, err := read(filepath.Join(configDir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	path, err := ParseConfigPath(path)
	if err != nil {
		return nil, err
	}
	return read(path)
}

func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.CachePath != "" {
		expanded, err := homedir.Expand(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("expanding cache_path: %w", err)
		}
		cfg.CachePath = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that cannot be used
func (c *Config) Validate() error {
	switch {
	case c.Download.BufferSize <= 0:
		return fmt.Errorf("%w: download.buffer_size must be positive", domain.ErrInvalidConfig)
	case c.Download.MaxAttempts < 1:
		return fmt.Errorf("%w: download.max_attempts must be at least 1", domain.ErrInvalidConfig)
	case c.Download.RateLimit < 0:
		return fmt.Errorf("%w: download.rate_limit cannot be negative", domain.ErrInvalidConfig)
	case c.Download.InactivityTimeout < 0:
		return fmt.Errorf("%w: download.inactivity_timeout cannot be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// Set changes a single setting addressed by its YAML key
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "cache_path":
		c.CachePath, err = homedir.Expand(value)
	case "download.buffer_size":
		c.Download.BufferSize, err = strconv.Atoi(value)
	case "download.max_attempts":
		c.Download.MaxAttempts, err = strconv.Atoi(value)
	case "download.rate_limit":
		c.Download.RateLimit, err = strconv.ParseInt(value, 10, 64)
	case "download.inactivity_timeout":
		c.Download.InactivityTimeout, err = time.ParseDuration(value)
	case "download.user_agent":
		c.Download.UserAgent = value
	case "update_manifest":
		c.UpdateManifest = value
	default:
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidConfig, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err)
	}
	return c.Validate()
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, fileName)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
