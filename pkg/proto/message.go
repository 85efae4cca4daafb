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

// Package proto defines the message types exchanged with the browser
// extension over the native messaging channel. Field names and the sealed
// envelope format are fixed by the extension side of the protocol.
package proto

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command tags recognized by the dispatcher.
const (
	CmdSetupEncryption             = "setupEncryption"
	CmdUnlockWithBiometricsForUser = "unlockWithBiometricsForUser"
	CmdAuthenticateWithBiometrics  = "authenticateWithBiometrics"
	CmdGetBiometricsStatus         = "getBiometricsStatus"
	CmdGetBiometricsStatusForUser  = "getBiometricsStatusForUser"
	CmdConnected                   = "connected"
)

// Biometric status codes sent in responses.
const (
	StatusAvailable           = 0 // hardware present and ready
	StatusHardwareUnavailable = 2 // device absent or busy
	StatusNoUserKey           = 4 // no vault entry for the requested user
	StatusDisabled            = 5 // disabled by policy or unknown state
	StatusNotConfigured       = 7 // hardware present but not enrolled
)

// Command is a decrypted inbound request.
type Command struct {
	Command   string `json:"command"`
	MessageID int64  `json:"messageId"`
	UserID    string `json:"userId,omitempty"`
}

// ResponseValue is the tagged union carried in a response: either a status
// code or a boolean outcome. It serializes as a bare JSON number or bool.
type ResponseValue struct {
	isBool bool
	b      bool
	n      int32
}

// Number creates a numeric response value.
func Number(n int32) ResponseValue {
	return ResponseValue{n: n}
}

// Bool creates a boolean response value.
func Bool(b bool) ResponseValue {
	return ResponseValue{isBool: true, b: b}
}

// MarshalJSON implements json.Marshaler.
func (v ResponseValue) MarshalJSON() ([]byte, error) {
	if v.isBool {
		return json.Marshal(v.b)
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ResponseValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var n int32
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Number(n)
		return nil
	}
	return fmt.Errorf("proto: response value is neither bool nor number: %s", data)
}

// Bool reports the boolean value and whether this is a boolean response.
func (v ResponseValue) Bool() (bool, bool) {
	return v.b, v.isBool
}

// Number reports the numeric value and whether this is a numeric response.
func (v ResponseValue) Number() (int32, bool) {
	return v.n, !v.isBool
}

// Response is an outbound reply, sealed before transmission. UserKeyB64 is
// encoded as null when no key accompanies the response; the extension
// expects the field to be present either way.
type Response struct {
	Timestamp  uint64        `json:"timestamp"`
	Command    string        `json:"command"`
	MessageID  int64         `json:"messageId"`
	Response   ResponseValue `json:"response"`
	UserKeyB64 *string       `json:"userKeyB64"`
}

// NewResponse creates a response stamped with the current time in
// milliseconds since epoch.
func NewResponse(command string, messageID int64, value ResponseValue) *Response {
	return NewResponseWithKey(command, messageID, value, nil)
}

// NewResponseWithKey creates a response carrying an exported user key.
func NewResponseWithKey(command string, messageID int64, value ResponseValue, key *string) *Response {
	return &Response{
		Timestamp:  uint64(time.Now().UnixMilli()),
		Command:    command,
		MessageID:  messageID,
		Response:   value,
		UserKeyB64: key,
	}
}

// Frame is the outer envelope of every inbound message.
type Frame struct {
	AppID   string          `json:"appId"`
	Message json.RawMessage `json:"message"`
}

// Handshake is the clear-text setupEncryption message carried inside a
// frame. PublicKey is base64 DER SPKI.
type Handshake struct {
	Command   string `json:"command"`
	PublicKey string `json:"publicKey"`
}

// HandshakeReply is the unsealed setupEncryption response. SharedSecret is
// the base64 RSA-OAEP ciphertext of the 64-byte session secret.
type HandshakeReply struct {
	Command      string `json:"command"`
	AppID        string `json:"appId"`
	SharedSecret string `json:"sharedSecret"`
}

// SealedFrame is the outer envelope of every sealed outbound message. The
// envelope itself travels in textual form.
type SealedFrame struct {
	AppID     string        `json:"appId"`
	MessageID int64         `json:"messageId"`
	Message   SealedMessage `json:"message"`
}

// SealedMessage holds the textual envelope "2.<iv>|<data>|<mac>".
type SealedMessage struct {
	EncryptedString string `json:"encryptedString"`
}

// Greeting is the first frame sent when the host starts, before any request
// arrives.
type Greeting struct {
	Command string `json:"command"`
	AppID   string `json:"app_id"`
}
