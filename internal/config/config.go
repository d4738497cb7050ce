// Package config provides configuration management for the tidesafe agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir returns the default config directory (~/.tidesafe).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".tidesafe"), nil
}

// DefaultConfigPath returns the default config file path (~/.tidesafe/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// ExcludeFilePath returns the exclusion list path inside the given config
// directory.
func ExcludeFilePath(configDir string) string {
	return filepath.Join(configDir, "excludes.txt")
}

// LogDir returns the run-log directory inside the given config directory.
func LogDir(configDir string) string {
	return filepath.Join(configDir, "logs")
}

// Config holds one run's worth of backup configuration. It is immutable
// during a run; the schedule fields are parsed by the schedule package.
type Config struct {
	Bucket     string `yaml:"bucket,omitempty"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	Region     string `yaml:"region,omitempty"`
	KeyID      string `yaml:"key_id,omitempty"`
	AppKey     string `yaml:"app_key,omitempty"`
	Root       string `yaml:"root,omitempty"`
	Versioning bool   `yaml:"versioning,omitempty"`

	ScheduleType  string `yaml:"schedule_type,omitempty"`
	ScheduleTime  string `yaml:"schedule_time,omitempty"`
	ScheduleDays  string `yaml:"schedule_days,omitempty"`
	ScheduleDates string `yaml:"schedule_dates,omitempty"`

	WebhookURL string `yaml:"webhook_url,omitempty"`
}

// Validate checks that the configuration has required fields for a backup run.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.KeyID == "" {
		return errors.New("key_id is required")
	}
	if c.AppKey == "" {
		return errors.New("app_key is required")
	}
	if c.Root == "" {
		return errors.New("root is required")
	}
	return nil
}

// IsConfigured returns true if a first-run configuration has been saved.
func (c *Config) IsConfigured() bool {
	return c.Bucket != "" && c.KeyID != "" && c.AppKey != "" && c.Root != ""
}

// Load reads the configuration from the given path.
// If the file does not exist, an empty config is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads the configuration from the default path.
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the configuration to the given path, creating directories as
// needed. The file carries the application key, so permissions are
// restricted to the owner.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// SaveDefault saves the configuration to the default path.
func (c *Config) SaveDefault() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.Save(path)
}
