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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.Vault.Dir)
	assert.NotEmpty(t, cfg.Vault.KeyDir)
	assert.Equal(t, DefaultKeyName, cfg.Vault.KeyName)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, "127.0.0.1:9472", cfg.Diagnostics.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biovault.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vault:
  dir: /var/lib/biovault/keys
  key_dir: /var/lib/biovault/hwkeys
  key_name: production
logging:
  level: debug
diagnostics:
  enabled: true
  addr: 127.0.0.1:9999
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/biovault/keys", cfg.Vault.Dir)
	assert.Equal(t, "/var/lib/biovault/hwkeys", cfg.Vault.KeyDir)
	assert.Equal(t, "production", cfg.Vault.KeyName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Diagnostics.Addr)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biovault.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, DefaultKeyName, cfg.Vault.KeyName)
	assert.NotEmpty(t, cfg.Vault.Dir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/biovault.yaml")
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyName, cfg.Vault.KeyName)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BIOVAULT_VAULT_DIR", "/tmp/env-keys")
	t.Setenv("BIOVAULT_KEY_NAME", "env-key")
	t.Setenv("BIOVAULT_LOG_LEVEL", "error")
	t.Setenv("BIOVAULT_DIAG_ADDR", "127.0.0.1:7777")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env-keys", cfg.Vault.Dir)
	assert.Equal(t, "env-key", cfg.Vault.KeyName)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.True(t, cfg.Diagnostics.Enabled, "setting the diag addr enables diagnostics")
	assert.Equal(t, "127.0.0.1:7777", cfg.Diagnostics.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing vault dir", func(c *Config) { c.Vault.Dir = "" }, "vault dir"},
		{"missing key dir", func(c *Config) { c.Vault.KeyDir = "" }, "key_dir"},
		{"missing key name", func(c *Config) { c.Vault.KeyName = "" }, "key_name"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"diag enabled without addr", func(c *Config) {
			c.Diagnostics.Enabled = true
			c.Diagnostics.Addr = ""
		}, "diagnostics addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateLogLevelCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "DEBUG"
	assert.NoError(t, cfg.Validate())
}
