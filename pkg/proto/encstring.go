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

package proto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-biovault/pkg/crypto/cbchmac"
)

// EncryptionTypeAESCBC256HMACSHA256 identifies the only encryption scheme
// the protocol speaks. There is no negotiation.
const EncryptionTypeAESCBC256HMACSHA256 = 2

// ErrEncString is returned when an encrypted string is malformed or names
// an unsupported encryption scheme.
var ErrEncString = errors.New("proto: malformed encrypted string")

// EncString is the sealed envelope as it appears inside a message: the
// scheme identifier plus base64-encoded iv, ciphertext and mac. Its textual
// form is "2.<iv>|<data>|<mac>".
type EncString struct {
	EncryptionType int    `json:"encryptionType"`
	Data           string `json:"data"`
	IV             string `json:"iv"`
	MAC            string `json:"mac"`
}

// NewEncString builds the wire envelope from sealed bytes.
func NewEncString(s *cbchmac.Sealed) *EncString {
	return &EncString{
		EncryptionType: EncryptionTypeAESCBC256HMACSHA256,
		Data:           base64.StdEncoding.EncodeToString(s.Ciphertext),
		IV:             base64.StdEncoding.EncodeToString(s.IV),
		MAC:            base64.StdEncoding.EncodeToString(s.MAC),
	}
}

// Sealed decodes the envelope's base64 fields back into sealed bytes.
func (e *EncString) Sealed() (*cbchmac.Sealed, error) {
	if e.EncryptionType != EncryptionTypeAESCBC256HMACSHA256 {
		return nil, fmt.Errorf("%w: unsupported encryption type %d", ErrEncString, e.EncryptionType)
	}

	iv, err := base64.StdEncoding.DecodeString(e.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv: %v", ErrEncString, err)
	}
	data, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad data: %v", ErrEncString, err)
	}
	mac, err := base64.StdEncoding.DecodeString(e.MAC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad mac: %v", ErrEncString, err)
	}

	return &cbchmac.Sealed{IV: iv, Ciphertext: data, MAC: mac}, nil
}

// String renders the transport form "2.<iv>|<data>|<mac>".
func (e *EncString) String() string {
	return fmt.Sprintf("%d.%s|%s|%s", e.EncryptionType, e.IV, e.Data, e.MAC)
}

// ParseEncString parses the transport form produced by String.
func ParseEncString(s string) (*EncString, error) {
	head, rest, ok := strings.Cut(s, ".")
	if !ok {
		return nil, ErrEncString
	}
	encType, err := strconv.Atoi(head)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encryption type: %v", ErrEncString, err)
	}

	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return nil, ErrEncString
	}

	return &EncString{
		EncryptionType: encType,
		IV:             parts[0],
		Data:           parts[1],
		MAC:            parts[2],
	}, nil
}
