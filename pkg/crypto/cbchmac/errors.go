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

package cbchmac

import "errors"

var (
	// ErrIntegrity is returned when the MAC does not verify. The
	// ciphertext is never decrypted in this case.
	ErrIntegrity = errors.New("cbchmac: MAC verification failed")

	// ErrPadding is returned when the PKCS7 padding recovered after
	// decryption is malformed.
	ErrPadding = errors.New("cbchmac: invalid padding")

	// ErrKeySize is returned when serialized key material is not exactly
	// SecretSize bytes.
	ErrKeySize = errors.New("cbchmac: invalid key size")
)
