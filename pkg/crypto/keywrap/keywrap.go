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

// Package keywrap performs the one-shot asymmetric transport of the session
// secret to the browser extension at handshake time. The extension supplies
// an RSA public key (DER SPKI); the 64-byte session secret is encrypted to
// it with RSA-OAEP.
//
// OAEP uses SHA-1, not SHA-256. The extension side of the protocol is fixed
// on SHA-1 and changing the hash breaks interoperability with every deployed
// peer.
package keywrap

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrNotRSA is returned when the peer public key parses but is not an RSA key.
var ErrNotRSA = errors.New("keywrap: peer public key is not RSA")

// Wrap encrypts secret to the DER-encoded SPKI RSA public key and returns
// the raw ciphertext.
func Wrap(publicKeyDER, secret []byte) ([]byte, error) {
	parsed, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		return nil, fmt.Errorf("keywrap: failed to parse peer public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}

	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, secret, nil)
	if err != nil {
		return nil, fmt.Errorf("keywrap: RSA-OAEP encryption failed: %w", err)
	}
	return ciphertext, nil
}

// WrapBase64 accepts the peer public key as transported on the wire
// (base64 DER SPKI) and returns the wrapped secret as base64 text.
func WrapBase64(publicKeyB64 string, secret []byte) (string, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("keywrap: failed to decode peer public key: %w", err)
	}

	ciphertext, err := Wrap(der, secret)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
