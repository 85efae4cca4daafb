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

// Package cbchmac implements the authenticated encryption construct used to
// protect every payload crossing the native messaging channel:
// AES-256-CBC with PKCS7 padding, authenticated by HMAC-SHA256 over iv||ciphertext.
//
// Decryption is strictly verify-then-decrypt. The MAC is recomputed and
// compared in constant time before the ciphertext touches the block cipher,
// so a forged or corrupted message is rejected without exposing a padding
// oracle.
package cbchmac

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

const (
	// KeySize is the size of each half of the session secret.
	KeySize = 32

	// SecretSize is the serialized size of a session secret: encryption
	// key followed by MAC key.
	SecretSize = 2 * KeySize

	// IVSize is the AES-CBC initialization vector size.
	IVSize = aes.BlockSize

	// MACSize is the HMAC-SHA256 output size.
	MACSize = sha256.Size
)

// Key holds the two independent halves of a session secret: a 32-byte
// AES-256 encryption key and a 32-byte HMAC-SHA256 key. Immutable after
// creation.
type Key struct {
	encKey [KeySize]byte
	macKey [KeySize]byte
}

// Sealed is one encrypted message: a fresh IV, the PKCS7-padded CBC
// ciphertext, and the MAC over iv||ciphertext.
type Sealed struct {
	IV         []byte
	Ciphertext []byte
	MAC        []byte
}

// NewKey generates a fresh key pair from the cryptographically secure RNG.
func NewKey() (*Key, error) {
	k := &Key{}
	if _, err := io.ReadFull(rand.Reader, k.encKey[:]); err != nil {
		return nil, fmt.Errorf("cbchmac: failed to generate encryption key: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, k.macKey[:]); err != nil {
		return nil, fmt.Errorf("cbchmac: failed to generate mac key: %w", err)
	}
	return k, nil
}

// KeyFromBytes reconstructs a key from its 64-byte serialized form
// (encryption key followed by MAC key).
func KeyFromBytes(b []byte) (*Key, error) {
	if len(b) != SecretSize {
		return nil, ErrKeySize
	}
	k := &Key{}
	copy(k.encKey[:], b[:KeySize])
	copy(k.macKey[:], b[KeySize:])
	return k, nil
}

// Bytes returns the 64-byte serialized form transported to the peer at
// handshake time: encryption key followed by MAC key.
func (k *Key) Bytes() []byte {
	out := make([]byte, 0, SecretSize)
	out = append(out, k.encKey[:]...)
	out = append(out, k.macKey[:]...)
	return out
}

// Encrypt seals plaintext under the key with a fresh random IV. The IV is
// never reused across calls.
func (k *Key) Encrypt(plaintext []byte) (*Sealed, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("cbchmac: failed to generate iv: %w", err)
	}

	block, err := aes.NewCipher(k.encKey[:])
	if err != nil {
		return nil, fmt.Errorf("cbchmac: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return &Sealed{
		IV:         iv,
		Ciphertext: ciphertext,
		MAC:        k.mac(iv, ciphertext),
	}, nil
}

// Decrypt verifies the MAC and, only on success, decrypts and unpads the
// ciphertext. Returns ErrIntegrity on MAC mismatch and ErrPadding when the
// recovered padding is malformed.
func (k *Key) Decrypt(s *Sealed) ([]byte, error) {
	if !hmac.Equal(k.mac(s.IV, s.Ciphertext), s.MAC) {
		return nil, ErrIntegrity
	}
	if len(s.IV) != IVSize {
		return nil, ErrIntegrity
	}
	if len(s.Ciphertext) == 0 || len(s.Ciphertext)%aes.BlockSize != 0 {
		return nil, ErrIntegrity
	}

	block, err := aes.NewCipher(k.encKey[:])
	if err != nil {
		return nil, fmt.Errorf("cbchmac: %w", err)
	}

	plaintext := make([]byte, len(s.Ciphertext))
	cipher.NewCBCDecrypter(block, s.IV).CryptBlocks(plaintext, s.Ciphertext)
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// mac computes HMAC-SHA256(macKey, iv || ciphertext).
func (k *Key) mac(iv, ciphertext []byte) []byte {
	h := hmac.New(sha256.New, k.macKey[:])
	h.Write(iv)
	h.Write(ciphertext)
	return h.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-n], nil
}
