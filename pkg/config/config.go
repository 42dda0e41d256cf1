// Package config provides configuration management for modelman. It handles
// loading, validating and saving application settings and registry
// definitions. The package supports YAML configuration files and provides
// sensible defaults while allowing customization through configuration files.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	// Registry configuration
	Registries []*RegistryConfig `yaml:"registries"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// RegistryConfig represents a single model registry.
type RegistryConfig struct {
	Name    string      `yaml:"name"`
	URL     string      `yaml:"url"`
	Enabled bool        `yaml:"enabled"`
	Auth    *AuthConfig `yaml:"auth,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage settings
	ModelsDir    string `yaml:"models_dir,omitempty"`
	ManifestPath string `yaml:"manifest_path,omitempty"`
	HooksDir     string `yaml:"hooks_dir,omitempty"`

	// Network settings
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent_downloads"`
	UserAgent     string        `yaml:"user_agent,omitempty"`

	// Retry settings for registry resolution
	MaxRetries     uint          `yaml:"max_retries"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`

	// Download engine settings
	SidecarInterval time.Duration `yaml:"sidecar_interval"`
	GracePeriod     time.Duration `yaml:"grace_period"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // panic, fatal, error, warn, info, debug, trace
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for registry API requests.
	// Artifact transfers are not bounded by it.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxConcurrent is the default maximum number of concurrent downloads.
	DefaultMaxConcurrent = 3

	// DefaultUserAgent identifies modelman to registries and mirrors.
	DefaultUserAgent = "modelman/1.0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir, err := getUserDataDir()
	if err != nil {
		dataDir = "."
	}

	return &Config{
		Registries: []*RegistryConfig{},
		Settings: Settings{
			ModelsDir:     filepath.Join(dataDir, "models"),
			ManifestPath:  filepath.Join(dataDir, "manifest.json"),
			HooksDir:      filepath.Join(dataDir, "hooks"),
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			UserAgent:     DefaultUserAgent,
			OutputFormat:  "text",
			LogLevel:      "info",
		},
	}
}

func getUserDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".modelman"), nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "modelman", "config.yaml"), nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.Wrap(errors.ErrInvalidPath, "config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Settings.ModelsDir == "" {
		c.Settings.ModelsDir = defaults.Settings.ModelsDir
	}
	if c.Settings.ManifestPath == "" {
		c.Settings.ManifestPath = defaults.Settings.ManifestPath
	}
	if c.Settings.HooksDir == "" {
		c.Settings.HooksDir = defaults.Settings.HooksDir
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = DefaultUserAgent
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = "text"
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = "info"
	}
}

// SaveConfig saves configuration to a file atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.Wrap(errors.ErrInvalidPath, "config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidPath, err.Error())
	}

	if err := fsutil.EnsureDir(filepath.Dir(absPath)); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(err, "failed to create temporary config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Wrap(errors.ErrConfigValidation, "nil config")
	}
	if err := validateRegistries(c.Registries); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateRegistries(registries []*RegistryConfig) error {
	names := make(map[string]bool)
	for i, reg := range registries {
		if reg.Name == "" {
			return errors.Wrapf(errors.ErrConfigValidation, "registry %d has no name", i)
		}
		if reg.URL == "" {
			return errors.Wrapf(errors.ErrConfigValidation, "registry %s has no URL", reg.Name)
		}
		if names[reg.Name] {
			return errors.Wrapf(errors.ErrConfigValidation, "duplicate registry name %s", reg.Name)
		}
		names[reg.Name] = true
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	if s.MaxConcurrent < 1 {
		return errors.Wrap(errors.ErrConfigValidation, "max_concurrent_downloads must be at least 1")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.Wrapf(errors.ErrConfigValidation, "invalid output format: %s", s.OutputFormat)
	}
	validLevels := map[string]bool{
		"panic": true, "fatal": true, "error": true, "warn": true,
		"info": true, "debug": true, "trace": true,
	}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.Wrapf(errors.ErrConfigValidation, "invalid log level: %s", s.LogLevel)
	}
	return nil
}

// HostedRegistry returns the first enabled registry, or nil when none is
// configured.
func (c *Config) HostedRegistry() *RegistryConfig {
	for _, reg := range c.Registries {
		if reg.Enabled {
			return reg
		}
	}
	return nil
}

// AddRegistry adds a registry to the configuration. Returns an error if a
// registry with the same name already exists.
func (c *Config) AddRegistry(name, url string, enabled bool) error {
	for _, reg := range c.Registries {
		if reg.Name == name {
			return errors.Wrapf(errors.ErrConfigValidation, "registry %s already exists", name)
		}
	}

	c.Registries = append(c.Registries, &RegistryConfig{
		Name:    name,
		URL:     url,
		Enabled: enabled,
	})
	return nil
}

// RemoveRegistry removes a registry from the configuration.
func (c *Config) RemoveRegistry(name string) bool {
	for i, reg := range c.Registries {
		if reg.Name == name {
			c.Registries = append(c.Registries[:i], c.Registries[i+1:]...)
			return true
		}
	}
	return false
}

// SetValue sets a configuration value by key.
// Supported keys:
//   - models_dir: string - directory artifacts are installed into
//   - manifest_path: string - path of the manifest file
//   - hooks_dir: string - directory hook scripts are loaded from
//   - output_format: string - output format (text, json)
//   - log_level: string - logging level
//   - user_agent: string - User-Agent header sent to registries
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "models_dir":
		c.Settings.ModelsDir = value
	case "manifest_path":
		c.Settings.ManifestPath = value
	case "hooks_dir":
		c.Settings.HooksDir = value
	case "output_format":
		c.Settings.OutputFormat = value
	case "log_level":
		c.Settings.LogLevel = value
	case "user_agent":
		c.Settings.UserAgent = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns a configuration value by key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "models_dir":
		return c.Settings.ModelsDir, nil
	case "manifest_path":
		return c.Settings.ManifestPath, nil
	case "hooks_dir":
		return c.Settings.HooksDir, nil
	case "output_format":
		return c.Settings.OutputFormat, nil
	case "log_level":
		return c.Settings.LogLevel, nil
	case "user_agent":
		return c.Settings.UserAgent, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}
