package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/treedump/internal/filelock"
	"github.com/harrison/treedump/internal/sidecar"
	"gopkg.in/yaml.v3"
)

// HistoryConfig represents scan history configuration
type HistoryConfig struct {
	// Enabled records every scan and save in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database (empty = $TREEDUMP_HOME/history.db)
	DBPath string `yaml:"db_path"`
}

// Config represents treedump configuration options
type Config struct {
	// CurrentPath is the last opened root, used when a command gets no directory
	CurrentPath string `yaml:"current_path"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// SidecarName is the selection file name inside each scanned root
	SidecarName string `yaml:"sidecar_name"`

	// Concurrency is the number of directories listed in parallel (1 = sequential)
	Concurrency int `yaml:"concurrency"`

	// DefaultIgnore patterns apply to every scan on top of each root's own patterns
	DefaultIgnore []string `yaml:"default_ignore"`

	// History contains scan history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		CurrentPath:   "",
		LogLevel:      "warn",
		SidecarName:   sidecar.DefaultName,
		Concurrency:   1,
		DefaultIgnore: []string{},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointers distinguish "absent" from zero values so defaults survive
	type yamlConfig struct {
		CurrentPath   *string   `yaml:"current_path"`
		LogLevel      *string   `yaml:"log_level"`
		SidecarName   *string   `yaml:"sidecar_name"`
		Concurrency   *int      `yaml:"concurrency"`
		DefaultIgnore *[]string `yaml:"default_ignore"`
		History       *struct {
			Enabled *bool   `yaml:"enabled"`
			DBPath  *string `yaml:"db_path"`
		} `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.CurrentPath != nil {
		cfg.CurrentPath = *yamlCfg.CurrentPath
	}
	if yamlCfg.LogLevel != nil && *yamlCfg.LogLevel != "" {
		cfg.LogLevel = *yamlCfg.LogLevel
	}
	if yamlCfg.SidecarName != nil && *yamlCfg.SidecarName != "" {
		cfg.SidecarName = *yamlCfg.SidecarName
	}
	if yamlCfg.Concurrency != nil {
		cfg.Concurrency = *yamlCfg.Concurrency
	}
	if yamlCfg.DefaultIgnore != nil {
		cfg.DefaultIgnore = *yamlCfg.DefaultIgnore
	}
	if yamlCfg.History != nil {
		if yamlCfg.History.Enabled != nil {
			cfg.History.Enabled = *yamlCfg.History.Enabled
		}
		if yamlCfg.History.DBPath != nil {
			cfg.History.DBPath = *yamlCfg.History.DBPath
		}
	}

	return cfg, nil
}

// LoadConfigFromHome loads configuration from config.yaml in the treedump home directory
func LoadConfigFromHome() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfig(path)
}

// SaveConfig writes cfg to path as YAML, replacing the file atomically
func SaveConfig(ctx context.Context, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := ensureParent(path); err != nil {
		return err
	}
	if err := filelock.LockAndWrite(ctx, path, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, concurrency *int, sidecarName *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if concurrency != nil {
		c.Concurrency = *concurrency
	}
	if sidecarName != nil {
		c.SidecarName = *sidecarName
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}

	if c.SidecarName == "" {
		return fmt.Errorf("sidecar_name cannot be empty")
	}
	if c.SidecarName == "." || c.SidecarName == ".." || c.SidecarName != filepath.Base(c.SidecarName) {
		return fmt.Errorf("sidecar_name must be a file name, got %q", c.SidecarName)
	}

	return nil
}
