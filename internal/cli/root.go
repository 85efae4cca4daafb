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

// Package cli implements the biovault command tree: the native messaging
// host plus the operator commands for managing vault entries and the
// hardware-backed wrapping key.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-biovault/internal/config"
)

var (
	configFile string
	vaultDir   string
	keyName    string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "biovault",
	Short: "biovault - presence-gated unlock-key broker for browser extensions",
	Long: `biovault brokers encrypted unlock keys between a browser extension and a
locally persisted vault. Vault entries are encrypted at rest under a
hardware-backed key, and releasing a key to the extension requires an
OS-level user-presence check.

The browser launches biovault as a native messaging host; the remaining
commands manage vault entries and the wrapping key from a shell.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is biovault.yaml next to the executable, if present)")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault-dir", "",
		"vault directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&keyName, "key-name", "",
		"name of the hardware-backed wrapping key (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(hwkeyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		if def, err := defaultConfigPath(); err == nil {
			path = def
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if vaultDir != "" {
		cfg.Vault.Dir = vaultDir
	}
	if keyName != "" {
		cfg.Vault.KeyName = keyName
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// defaultConfigPath returns the executable-adjacent config file, or an
// error when none exists.
func defaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	path := filepath.Join(filepath.Dir(exe), "biovault.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
