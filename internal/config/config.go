package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultScopeTag         = "workspace"
	defaultRepositoryPrefix = "lcdp-"
	defaultHealthInterval   = 30 * time.Second
	minHealthInterval       = time.Second
	defaultHealthRetries    = 26
)

// Config holds optional defaults loaded from ~/.config/bluegreen/config.yaml.
type Config struct {
	DefaultProfile string `yaml:"default_profile"`
	DefaultRegion  string `yaml:"default_region"`

	ALBName         string `yaml:"alb_name"`
	ALBNameContains string `yaml:"alb_name_contains"`
	Cluster         string `yaml:"cluster"`
	SSLEnabled      bool   `yaml:"ssl_enabled"`
	ListenerARN     string `yaml:"listener_arn"`

	// Workspace scopes target groups and selects the
	// <workspace>-<logical>-service-<color> naming. Without a workspace, or
	// with LegacyNaming, services are named <repo>-<color>.
	Workspace        string `yaml:"workspace"`
	ScopeTag         string `yaml:"scope_tag"`
	LegacyNaming     bool   `yaml:"legacy_naming"`
	RepositoryPrefix string `yaml:"repository_prefix"`

	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	MetricsFile string `yaml:"metrics_file"`

	HealthIntervalSeconds int `yaml:"health_interval_seconds"`
	HealthRetries         int `yaml:"health_retries"`
}

// Path returns the location of the config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bluegreen", "config.yaml"), nil
}

// Load reads the config file. Returns zero-value Config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return &Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields a zero Config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Merge applies CLI flag overrides. Flags take precedence over config defaults.
func (c *Config) Merge(profile, region string) (string, string) {
	return Override(profile, c.DefaultProfile), Override(region, c.DefaultRegion)
}

// Override returns flag unless it is empty.
func Override(flag, value string) string {
	if flag != "" {
		return flag
	}
	return value
}

// ScopeKey returns the tag key scoping target groups to the workspace.
func (c *Config) ScopeKey() string {
	if c.ScopeTag == "" {
		return defaultScopeTag
	}
	return c.ScopeTag
}

// Prefix returns the prefix of deployable repositories.
func (c *Config) Prefix() string {
	if c.RepositoryPrefix == "" {
		return defaultRepositoryPrefix
	}
	return c.RepositoryPrefix
}

// HealthInterval returns the delay between health polls. Minimum 1s, default 30s.
func (c *Config) HealthInterval() time.Duration {
	if c.HealthIntervalSeconds <= 0 {
		return defaultHealthInterval
	}
	d := time.Duration(c.HealthIntervalSeconds) * time.Second
	if d < minHealthInterval {
		return minHealthInterval
	}
	return d
}

// HealthPolls returns the health poll budget. Default 26.
func (c *Config) HealthPolls() int {
	if c.HealthRetries <= 0 {
		return defaultHealthRetries
	}
	return c.HealthRetries
}
