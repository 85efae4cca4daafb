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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-biovault/pkg/hwkey"
)

// hwkeyCmd represents the hwkey command
var hwkeyCmd = &cobra.Command{
	Use:   "hwkey",
	Short: "Manage keys in the hardware key provider",
	Long: `List, create, and delete the keystore keys that wrap vault entries.
Deleting a wrapping key makes every entry encrypted under it unrecoverable.`,
}

// hwkeyListCmd lists provider keys
var hwkeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keys in the provider",
	Run: func(cmd *cobra.Command, args []string) {
		withProvider(func(p hwkey.Provider) error {
			names, err := p.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No provider keys found.")
				return nil
			}
			for _, name := range names {
				fmt.Printf("Key: %s\n", name)
			}
			return nil
		})
	},
}

// hwkeyCreateCmd creates a provider key
var hwkeyCreateCmd = &cobra.Command{
	Use:   "create <key-name>",
	Short: "Create a key, replacing any existing key with that name",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withProvider(func(p hwkey.Provider) error {
			if _, err := p.Create(args[0]); err != nil {
				return err
			}
			fmt.Printf("Key %q created successfully.\n", args[0])
			return nil
		})
	},
}

// hwkeyDeleteCmd deletes a provider key
var hwkeyDeleteCmd = &cobra.Command{
	Use:   "delete <key-name>",
	Short: "Delete a key from the provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withProvider(func(p hwkey.Provider) error {
			if err := p.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Key %q deleted successfully.\n", args[0])
			return nil
		})
	},
}

func init() {
	hwkeyCmd.AddCommand(hwkeyListCmd)
	hwkeyCmd.AddCommand(hwkeyCreateCmd)
	hwkeyCmd.AddCommand(hwkeyDeleteCmd)
}

// withProvider loads config, opens the key provider, and runs fn.
func withProvider(fn func(hwkey.Provider) error) {
	cfg, err := loadConfig()
	if err != nil {
		handleError(err)
		return
	}

	provider, err := newProvider(cfg)
	if err != nil {
		handleError(err)
		return
	}

	if err := fn(provider); err != nil {
		handleError(err)
	}
}
