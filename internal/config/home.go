package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv names the environment variable that overrides the home directory
const HomeEnv = "TREEDUMP_HOME"

// GetHome returns the treedump home directory
// Priority order:
//  1. TREEDUMP_HOME environment variable (if set)
//  2. ~/.treedump
//  3. .treedump in the current working directory (no user home available)
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(HomeEnv)

	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil && userHome != "" {
			home = filepath.Join(userHome, ".treedump")
		}
	}

	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, ".treedump")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create treedump home directory: %w", err)
	}

	return home, nil
}

// GetConfigPath returns the path of the application config file
// Always returns: $TREEDUMP_HOME/config.yaml
func GetConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// GetHistoryDBPath returns the history database path for cfg,
// defaulting to $TREEDUMP_HOME/history.db
func GetHistoryDBPath(cfg *Config) (string, error) {
	if cfg != nil && cfg.History.DBPath != "" {
		return cfg.History.DBPath, nil
	}
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}

// ensureParent creates the parent directory of path
func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
