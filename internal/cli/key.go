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

	"github.com/jeremyhahn/go-biovault/pkg/vault"
)

// keyCmd represents the key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage vault entries",
	Long:  `Import, export, list, check, and delete per-user unlock keys in the vault`,
}

// keyListCmd lists vault entries
var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the user ids with vault entries",
	Run: func(cmd *cobra.Command, args []string) {
		withVault(func(v *vault.Vault) error {
			users, err := v.List()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No keys found.")
				return nil
			}
			for _, u := range users {
				fmt.Printf("Key: %s\n", u)
			}
			return nil
		})
	},
}

// keyImportCmd imports a key for a user
var keyImportCmd = &cobra.Command{
	Use:   "import <user-id> <key>",
	Short: "Import a plaintext unlock key for a user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withVault(func(v *vault.Vault) error {
			if err := v.Import(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Key imported successfully.")
			return nil
		})
	},
}

// keyExportCmd exports a key, subject to the presence check
var keyExportCmd = &cobra.Command{
	Use:   "export <user-id>",
	Short: "Export a user's unlock key (requires presence check)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withVault(func(v *vault.Vault) error {
			key, err := v.Export(args[0])
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		})
	},
}

// keyDeleteCmd deletes a user's entry
var keyDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user's vault entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withVault(func(v *vault.Vault) error {
			if err := v.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("Key deleted successfully.")
			return nil
		})
	},
}

// keyCheckCmd checks whether an entry exists
var keyCheckCmd = &cobra.Command{
	Use:   "check <user-id>",
	Short: "Check whether a vault entry exists for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withVault(func(v *vault.Vault) error {
			exists, err := v.Exists(args[0])
			if err != nil {
				return err
			}
			if exists {
				fmt.Println("Key exists.")
			} else {
				fmt.Println("Key does not exist.")
			}
			return nil
		})
	},
}

func init() {
	keyCmd.AddCommand(keyListCmd)
	keyCmd.AddCommand(keyImportCmd)
	keyCmd.AddCommand(keyExportCmd)
	keyCmd.AddCommand(keyDeleteCmd)
	keyCmd.AddCommand(keyCheckCmd)
}

// withVault loads config, builds the vault, and runs fn against it.
func withVault(fn func(*vault.Vault) error) {
	cfg, err := loadConfig()
	if err != nil {
		handleError(err)
		return
	}

	v, err := buildVault(cfg, newGate())
	if err != nil {
		handleError(err)
		return
	}

	if err := fn(v); err != nil {
		handleError(err)
	}
}
