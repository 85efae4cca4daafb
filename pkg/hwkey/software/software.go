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

// Package software provides a software stand-in for the hardware key
// provider. Keys are RSA-2048 with PKCS#1 v1.5 padding, matching the
// parameters of the platform keystore keys it substitutes for, and are
// persisted as PKCS#8 DER blobs, optionally encrypted under a passphrase.
//
// Unlike a real hardware key, the private material lives in process memory
// while a handle is open. This backend exists for development, testing, and
// platforms without a keystore integration.
package software

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"

	"github.com/youmark/pkcs8"

	"github.com/jeremyhahn/go-biovault/pkg/hwkey"
	"github.com/jeremyhahn/go-biovault/pkg/storage"
)

const keyBits = 2048

// Config holds the software provider configuration.
type Config struct {
	// Storage persists the PKCS#8 key blobs, keyed by key name.
	Storage storage.Backend

	// Passphrase encrypts the PKCS#8 blobs at rest. Empty means the
	// blobs are stored unencrypted (file permissions are the only
	// protection, as with a development keystore).
	Passphrase []byte
}

// Provider is a storage-backed implementation of hwkey.Provider.
type Provider struct {
	store      storage.Backend
	passphrase []byte
	mu         sync.Mutex
}

// New creates a software key provider.
func New(cfg *Config) (*Provider, error) {
	if cfg == nil || cfg.Storage == nil {
		return nil, fmt.Errorf("software: storage backend is required")
	}
	return &Provider{
		store:      cfg.Storage,
		passphrase: cfg.Passphrase,
	}, nil
}

// Open returns a handle to the named key, generating and persisting a new
// key if none exists.
func (p *Provider) Open(name string) (hwkey.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	der, err := p.store.Get(name)
	if err == nil {
		key, err := p.parseKey(der)
		if err != nil {
			return nil, err
		}
		return &handle{key: key}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("software: failed to load key %q: %w", name, err)
	}

	return p.create(name)
}

// Create provisions a new key under the given name, replacing any existing
// key with that name.
func (p *Provider) Create(name string) (hwkey.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.create(name)
}

func (p *Provider) create(name string) (hwkey.Handle, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("software: failed to generate key: %w", err)
	}

	der, err := p.marshalKey(key)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(name, der); err != nil {
		return nil, fmt.Errorf("software: failed to persist key %q: %w", name, err)
	}
	return &handle{key: key}, nil
}

// Delete removes the named key.
func (p *Provider) Delete(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.store.Delete(name)
	if errors.Is(err, storage.ErrNotFound) {
		return hwkey.ErrKeyNotFound
	}
	return err
}

// List enumerates the names of provisioned keys.
func (p *Provider) List() ([]string, error) {
	return p.store.List()
}

func (p *Provider) marshalKey(key *rsa.PrivateKey) ([]byte, error) {
	var der []byte
	var err error
	if len(p.passphrase) > 0 {
		der, err = pkcs8.ConvertPrivateKeyToPKCS8(key, p.passphrase)
	} else {
		der, err = pkcs8.ConvertPrivateKeyToPKCS8(key)
	}
	if err != nil {
		return nil, fmt.Errorf("software: failed to marshal key: %w", err)
	}
	return der, nil
}

func (p *Provider) parseKey(der []byte) (*rsa.PrivateKey, error) {
	var parsed interface{}
	var err error
	if len(p.passphrase) > 0 {
		parsed, err = pkcs8.ParsePKCS8PrivateKey(der, p.passphrase)
	} else {
		parsed, err = pkcs8.ParsePKCS8PrivateKey(der)
	}
	if err != nil {
		return nil, fmt.Errorf("software: failed to parse key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("software: stored key is not RSA")
	}
	return key, nil
}

// handle invokes a loaded RSA key. PKCS#1 v1.5 limits plaintext to the
// modulus size minus padding (245 bytes at 2048 bits), which comfortably
// fits the unlock keys the vault stores.
type handle struct {
	key *rsa.PrivateKey
}

func (h *handle) Encrypt(plaintext []byte) ([]byte, error) {
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &h.key.PublicKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("software: encrypt failed: %w", err)
	}
	return ciphertext, nil
}

func (h *handle) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := rsa.DecryptPKCS1v15(nil, h.key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("software: decrypt failed: %w", err)
	}
	return plaintext, nil
}
