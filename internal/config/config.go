// Package config handles application configuration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const appName = "vtask"

const defaultCacheTTL = 10 * time.Minute

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Config represents the application configuration
type Config struct {
	Server         ServerConfig   `yaml:"server"`
	DefaultProject string         `yaml:"default_project"`
	OutputFormat   string         `yaml:"output_format"`
	Cache          CacheConfig    `yaml:"cache"`
	QuickAdd       QuickAddConfig `yaml:"quick_add"`
	Logging        LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the task server connection
type ServerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
}

// CacheConfig holds the name-to-ID lookup cache settings
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`
	TTL     string `yaml:"ttl"` // e.g. "30s", "10m"
}

// QuickAddConfig holds quick add parser settings
type QuickAddConfig struct {
	NaturalLanguage *bool  `yaml:"natural_language"` // default: true
	Timezone        string `yaml:"timezone"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbose           bool  `yaml:"verbose"`
	BackgroundEnabled *bool `yaml:"background_enabled"` // default: true
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputFormat: "text",
		Cache: CacheConfig{
			Path: filepath.Join(GetCacheDir(), "lookups.db"),
			TTL:  defaultCacheTTL.String(),
		},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it writes the sample config and returns defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// LoadFromPath loads configuration from a specific path without writing a
// sample or filling defaults. A missing file returns a nil config.
func LoadFromPath(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputFormat == "" {
		c.OutputFormat = "text"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(GetCacheDir(), "lookups.db")
	}
	c.Cache.Path = ExpandPath(c.Cache.Path)
	if c.Cache.TTL == "" {
		c.Cache.TTL = defaultCacheTTL.String()
	}
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
}

// save writes the embedded sample, which documents every key.
func (c *Config) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid server.url: %q (must be an http or https URL)", c.Server.URL)
		}
	}

	if c.Cache.TTL != "" {
		d, err := time.ParseDuration(c.Cache.TTL)
		if err != nil {
			return fmt.Errorf("invalid duration for cache.ttl: %q", c.Cache.TTL)
		}
		if d < 0 {
			return fmt.Errorf("cache.ttl must not be negative, got %q", c.Cache.TTL)
		}
	}

	if c.QuickAdd.Timezone != "" {
		if _, err := time.LoadLocation(c.QuickAdd.Timezone); err != nil {
			return fmt.Errorf("invalid quick_add.timezone: %q", c.QuickAdd.Timezone)
		}
	}

	return nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(verbose bool, outputFormat string) {
	if verbose {
		c.Logging.Verbose = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// IsServerConfigured returns true if a server URL is set
func (c *Config) IsServerConfigured() bool {
	return c.Server.URL != ""
}

// IsCacheEnabled returns true if the lookup cache is enabled.
// Returns true (default) if not configured.
func (c *Config) IsCacheEnabled() bool {
	if c.Cache.Enabled == nil {
		return true
	}
	return *c.Cache.Enabled
}

// GetCachePath returns the lookup cache database path
func (c *Config) GetCachePath() string {
	if c.Cache.Path == "" {
		return filepath.Join(GetCacheDir(), "lookups.db")
	}
	return c.Cache.Path
}

// GetCacheTTLDuration returns the cache TTL as a time.Duration.
// Returns 10 minutes if not configured or if parsing fails.
func (c *Config) GetCacheTTLDuration() time.Duration {
	if c.Cache.TTL == "" {
		return defaultCacheTTL
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return defaultCacheTTL
	}
	return d
}

// IsNaturalLanguageEnabled returns true if the general-purpose date parser runs
// before the built-in rules. Returns true (default) if not configured.
func (c *Config) IsNaturalLanguageEnabled() bool {
	if c.QuickAdd.NaturalLanguage == nil {
		return true
	}
	return *c.QuickAdd.NaturalLanguage
}

// GetLocation returns the zone quick add dates are read in.
// Returns time.Local if unset or unknown.
func (c *Config) GetLocation() *time.Location {
	if c.QuickAdd.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.QuickAdd.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsBackgroundLoggingEnabled returns true if background logging is enabled.
// Returns true (default) if not configured.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	if c.Logging.BackgroundEnabled == nil {
		return true
	}
	return *c.Logging.BackgroundEnabled
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, appName)
	}
	return filepath.Join(home, fallbackPath, appName)
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetCacheDir returns the cache directory following XDG spec
func GetCacheDir() string {
	return getXDGDir("XDG_CACHE_HOME", ".cache")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
