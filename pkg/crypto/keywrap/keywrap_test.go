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

package keywrap

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biovault/pkg/crypto/cbchmac"
)

func TestWrapRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	key, err := cbchmac.NewKey()
	require.NoError(t, err)
	secret := key.Bytes()

	ciphertext, err := Wrap(der, secret)
	require.NoError(t, err)

	recovered, err := rsa.DecryptOAEP(sha1.New(), nil, priv, ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, secret, recovered)
	assert.Len(t, recovered, cbchmac.SecretSize)
}

func TestWrapBase64RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	secret := make([]byte, cbchmac.SecretSize)
	for i := range secret {
		secret[i] = byte(i)
	}

	wrapped, err := WrapBase64(base64.StdEncoding.EncodeToString(der), secret)
	require.NoError(t, err)

	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	require.NoError(t, err)

	recovered, err := rsa.DecryptOAEP(sha1.New(), nil, priv, ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, secret, recovered)
}

func TestWrapRejectsNonRSAKey(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	_, err = Wrap(der, []byte("secret"))
	assert.ErrorIs(t, err, ErrNotRSA)
}

func TestWrapRejectsGarbageDER(t *testing.T) {
	_, err := Wrap([]byte("not a der structure"), []byte("secret"))
	assert.Error(t, err)
}

func TestWrapBase64RejectsInvalidEncoding(t *testing.T) {
	_, err := WrapBase64("!!! not base64 !!!", []byte("secret"))
	assert.Error(t, err)
}
