package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration every command reads.
type Config struct {
	// Database is the path to the SQLite database file.
	Database string `yaml:"database"`
	// Defs is the directory holding the CUE entity declarations.
	Defs string `yaml:"defs"`
	// Timezone is the active time zone for timestamp coercion,
	// e.g. "Europe/Berlin". Empty means UTC.
	Timezone string `yaml:"timezone"`
	// EncryptionKeyEnv names the environment variable holding the
	// encryption passphrase. Empty disables column encryption.
	EncryptionKeyEnv string `yaml:"encryption_key_env"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read config", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, "parse config", err)
	}
	if cfg.Database == "" {
		return nil, NewExitError(ExitCommandError, "config: database is required")
	}
	if cfg.Defs == "" {
		return nil, NewExitError(ExitCommandError, "config: defs is required")
	}
	return cfg, nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("unknown timezone %q", c.Timezone), err)
	}
	return loc, nil
}

// EncryptionKey reads the configured passphrase from the environment.
func (c *Config) EncryptionKey() string {
	if c.EncryptionKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.EncryptionKeyEnv)
}
