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

	"github.com/jeremyhahn/go-biovault/internal/config"
	"github.com/jeremyhahn/go-biovault/pkg/hwkey"
	"github.com/jeremyhahn/go-biovault/pkg/hwkey/software"
	"github.com/jeremyhahn/go-biovault/pkg/presence"
	"github.com/jeremyhahn/go-biovault/pkg/storage/file"
	"github.com/jeremyhahn/go-biovault/pkg/vault"
)

// newGate builds the platform presence gate. Platform integrations
// (Windows Hello, Touch ID) override this in their build; the default
// reports Unknown availability and denies every check.
var newGate = func() presence.Gate {
	return presence.UnavailableGate()
}

// newProvider builds the hardware key provider. The default is the
// software stand-in; platform builds substitute their native keystore.
var newProvider = func(cfg *config.Config) (hwkey.Provider, error) {
	store, err := file.New(cfg.Vault.KeyDir)
	if err != nil {
		return nil, err
	}

	return software.New(&software.Config{
		Storage:    store,
		Passphrase: []byte(cfg.Vault.Passphrase),
	})
}

// buildVault assembles the vault: file storage for entries, the wrapping
// key from the provider, and the presence gate in front of decrypts.
func buildVault(cfg *config.Config, gate presence.Gate) (*vault.Vault, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open key provider: %w", err)
	}

	handle, err := provider.Open(cfg.Vault.KeyName)
	if err != nil {
		return nil, fmt.Errorf("failed to open wrapping key %q: %w", cfg.Vault.KeyName, err)
	}

	store, err := file.New(cfg.Vault.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault storage: %w", err)
	}

	return vault.New(store, hwkey.Gated(handle, gate)), nil
}
