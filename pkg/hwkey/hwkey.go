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

// Package hwkey models a hardware-backed asymmetric key as a capability:
// the key can be invoked by reference but its private material is never
// exposed. Vault entries at rest are wrapped by such a key, and decryption
// can be gated behind a user-presence check.
//
// Platform keystores (Windows CNG, TPM 2.0, Secure Enclave) implement
// Provider and Handle natively; the software subpackage provides a
// file-backed stand-in with the same contract.
package hwkey

import "errors"

var (
	// ErrPresenceDenied is returned when a gated decrypt fails the
	// user-presence check.
	ErrPresenceDenied = errors.New("hwkey: presence check denied")

	// ErrKeyNotFound is returned when a named key does not exist in the
	// provider.
	ErrKeyNotFound = errors.New("hwkey: key not found")
)

// Handle is a reference to a provisioned key. Encrypt and Decrypt invoke
// the key without ever exposing it.
type Handle interface {
	// Encrypt wraps plaintext under the key's public half.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt unwraps ciphertext with the key's private half.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Provider manages named keys in a keystore.
type Provider interface {
	// Open returns a handle to the named key, transparently provisioning
	// it if it does not exist.
	Open(name string) (Handle, error)

	// Create provisions a new key under the given name, replacing any
	// existing key with that name.
	Create(name string) (Handle, error)

	// Delete removes the named key. Returns ErrKeyNotFound if absent.
	Delete(name string) error

	// List enumerates the names of provisioned keys.
	List() ([]string, error)
}
