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

// Package vault stores one unlock key per user, encrypted at rest under a
// hardware-backed key. An entry on disk is nothing but the hardware-key
// ciphertext of the UTF-8 secret; the file name is the user id and there is
// no sidecar metadata.
//
// The vault performs no locking of its own. It assumes a single process
// owns the vault directory; concurrent writers from other processes race
// with last-writer-wins semantics.
package vault

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jeremyhahn/go-biovault/pkg/hwkey"
	"github.com/jeremyhahn/go-biovault/pkg/storage"
)

var (
	// ErrEntryNotFound is returned when no entry exists for the user.
	ErrEntryNotFound = errors.New("vault: no entry for user")

	// ErrInvalidEncoding is returned when a decrypted entry is not valid
	// UTF-8.
	ErrInvalidEncoding = errors.New("vault: entry is not valid UTF-8")
)

// Vault is the per-user key vault. The handle is typically wrapped with
// hwkey.Gated so exports trigger a presence check.
type Vault struct {
	store  storage.Backend
	handle hwkey.Handle
}

// New creates a Vault over the given storage backend and key handle.
func New(store storage.Backend, handle hwkey.Handle) *Vault {
	return &Vault{store: store, handle: handle}
}

// Import encrypts the secret under the hardware key and writes it as the
// user's entry, overwriting any previous one.
func (v *Vault) Import(userID, secret string) error {
	ciphertext, err := v.handle.Encrypt([]byte(secret))
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt entry for %q: %w", userID, err)
	}
	if err := v.store.Put(userID, ciphertext); err != nil {
		return fmt.Errorf("vault: failed to write entry for %q: %w", userID, err)
	}
	return nil
}

// Exists reports whether an entry exists for the user. This is a
// file-existence check only: nothing is decrypted and the presence gate is
// never consulted.
func (v *Vault) Exists(userID string) (bool, error) {
	return v.store.Exists(userID)
}

// Export reads the user's entry and decrypts it through the hardware key
// handle. When the handle is presence-gated the user is challenged here.
func (v *Vault) Export(userID string) (string, error) {
	ciphertext, err := v.store.Get(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrEntryNotFound, userID)
		}
		return "", fmt.Errorf("vault: failed to read entry for %q: %w", userID, err)
	}

	plaintext, err := v.handle.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("vault: failed to decrypt entry for %q: %w", userID, err)
	}

	if !utf8.Valid(plaintext) {
		return "", ErrInvalidEncoding
	}
	return string(plaintext), nil
}

// Delete removes the user's entry. Deleting an absent entry is not an
// error.
func (v *Vault) Delete(userID string) error {
	err := v.store.Delete(userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("vault: failed to delete entry for %q: %w", userID, err)
	}
	return nil
}

// List enumerates the user ids that have entries.
func (v *Vault) List() ([]string, error) {
	return v.store.List()
}
