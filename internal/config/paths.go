// Package config resolves shguard's on-disk locations and environment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvHome overrides the data directory.
	EnvHome = "SHGUARD_HOME"
	// EnvDB overrides the full path of the decision log database.
	EnvDB = "SHGUARD_DB"
	// EnvLogLevel sets the default log level (debug, info, warn, error).
	EnvLogLevel = "SHGUARD_LOG_LEVEL"
	// EnvLogFormat sets the default log format (json or text).
	EnvLogFormat = "SHGUARD_LOG_FORMAT"
)

// DataDir returns the directory used to store shguard data.
func DataDir() (string, error) {
	if d := os.Getenv(EnvHome); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".shguard"), nil
}

// EnsureDataDir returns DataDir after creating it if needed.
func EnsureDataDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return d, nil
}

// DBPath returns the full path to the SQLite database file.
func DBPath() (string, error) {
	if p := os.Getenv(EnvDB); p != "" {
		return p, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "shguard.db"), nil
}

// LogLevel returns the log level from the environment, "info" when unset.
func LogLevel() string {
	return envOr(EnvLogLevel, "info")
}

// LogFormat returns the log format from the environment, "text" when unset.
func LogFormat() string {
	return envOr(EnvLogFormat, "text")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
