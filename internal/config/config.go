// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the biovault configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete biovault configuration
type Config struct {
	Vault       VaultConfig       `yaml:"vault"`
	Logging     LoggingConfig     `yaml:"logging"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// VaultConfig controls the key vault and the hardware key backing it
type VaultConfig struct {
	// Dir is the vault directory: one file per user id
	Dir string `yaml:"dir"`

	// KeyDir is where the software key provider persists its key blobs
	KeyDir string `yaml:"key_dir"`

	// KeyName is the name of the hardware-backed key wrapping entries
	KeyName string `yaml:"key_name"`

	// Passphrase encrypts software-provider key blobs at rest (optional)
	Passphrase string `yaml:"passphrase,omitempty"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DiagnosticsConfig controls the loopback diagnostics server
type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultKeyName is the name of the wrapping key when none is configured.
const DefaultKeyName = "biovault"

// DefaultConfig returns a configuration with sensible defaults. The vault
// and key directories default to directories next to the executable, so an
// unpacked install works with no config file at all.
func DefaultConfig() *Config {
	baseDir := "."
	if exe, err := os.Executable(); err == nil {
		baseDir = filepath.Dir(exe)
	}

	return &Config{
		Vault: VaultConfig{
			Dir:     filepath.Join(baseDir, "keys"),
			KeyDir:  filepath.Join(baseDir, "hwkeys"),
			KeyName: DefaultKeyName,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Diagnostics: DiagnosticsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9472",
		},
	}
}

// Load reads the configuration from a YAML file, applies environment
// overrides, and validates the result. An empty path yields the defaults
// (still subject to env overrides).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies BIOVAULT_* environment variables on top of the
// file configuration.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("BIOVAULT_VAULT_DIR"); dir != "" {
		c.Vault.Dir = dir
	}
	if dir := os.Getenv("BIOVAULT_KEY_DIR"); dir != "" {
		c.Vault.KeyDir = dir
	}
	if name := os.Getenv("BIOVAULT_KEY_NAME"); name != "" {
		c.Vault.KeyName = name
	}
	if pass := os.Getenv("BIOVAULT_KEY_PASSPHRASE"); pass != "" {
		c.Vault.Passphrase = pass
	}
	if level := os.Getenv("BIOVAULT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("BIOVAULT_DIAG_ADDR"); addr != "" {
		c.Diagnostics.Enabled = true
		c.Diagnostics.Addr = addr
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Vault.Dir == "" {
		return fmt.Errorf("config: vault dir is required")
	}
	if c.Vault.KeyDir == "" {
		return fmt.Errorf("config: vault key_dir is required")
	}
	if c.Vault.KeyName == "" {
		return fmt.Errorf("config: vault key_name is required")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("config: invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	if c.Diagnostics.Enabled && c.Diagnostics.Addr == "" {
		return fmt.Errorf("config: diagnostics addr is required when enabled")
	}
	return nil
}
