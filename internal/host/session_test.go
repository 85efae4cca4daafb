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

package host

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biovault/pkg/crypto/cbchmac"
	"github.com/jeremyhahn/go-biovault/pkg/presence"
	"github.com/jeremyhahn/go-biovault/pkg/proto"
	"github.com/jeremyhahn/go-biovault/pkg/storage"
	"github.com/jeremyhahn/go-biovault/pkg/vault"
)

const testAppID = "com.8bit.bitwarden"

type testGate struct {
	availability    presence.Availability
	availabilityErr error
	verifyOK        bool
	verifyErr       error
}

func (g *testGate) CheckAvailability() (presence.Availability, error) {
	return g.availability, g.availabilityErr
}

func (g *testGate) VerifyPresence() (bool, error) { return g.verifyOK, g.verifyErr }

// identityHandle stands in for a hardware key in tests that do not care
// about the at-rest encryption itself.
type identityHandle struct{}

func (identityHandle) Encrypt(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (identityHandle) Decrypt(ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

// testSession wires a session over in-memory buffers with direct access to
// the session secret for sealing requests.
type testSession struct {
	session *Session
	in      *bytes.Buffer
	out     *bytes.Buffer
	vault   *vault.Vault
	store   storage.Backend
}

func newTestSession(t *testing.T, gate presence.Gate) *testSession {
	t.Helper()

	store := storage.NewMemory()
	v := vault.New(store, identityHandle{})

	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	session, err := NewSession(&Config{
		Reader: in,
		Writer: out,
		Vault:  v,
		Gate:   gate,
	})
	require.NoError(t, err)

	return &testSession{session: session, in: in, out: out, vault: v, store: store}
}

func frameBytes(t *testing.T, v any) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)

	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], uint32(len(body)))
	return append(lenBuf[:], body...)
}

// pushCommand seals a command under the session secret and queues the frame.
func (ts *testSession) pushCommand(t *testing.T, cmd *proto.Command) {
	t.Helper()
	payload, err := json.Marshal(cmd)
	require.NoError(t, err)

	sealed, err := ts.session.secret.Encrypt(payload)
	require.NoError(t, err)

	message, err := json.Marshal(proto.NewEncString(sealed))
	require.NoError(t, err)

	ts.in.Write(frameBytes(t, &proto.Frame{AppID: testAppID, Message: message}))
}

// popFrames drains and decodes every frame written by the session.
func (ts *testSession) popFrames(t *testing.T) [][]byte {
	t.Helper()
	var frames [][]byte
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(ts.out, lenBuf[:]); err != nil {
			require.ErrorIs(t, err, io.EOF)
			return frames
		}
		body := make([]byte, binary.NativeEndian.Uint32(lenBuf[:]))
		_, err := io.ReadFull(ts.out, body)
		require.NoError(t, err)
		frames = append(frames, body)
	}
}

// openResponse unwraps a sealed response frame.
func (ts *testSession) openResponse(t *testing.T, frame []byte) *proto.Response {
	t.Helper()
	var sf proto.SealedFrame
	require.NoError(t, json.Unmarshal(frame, &sf))
	assert.Equal(t, testAppID, sf.AppID)

	env, err := proto.ParseEncString(sf.Message.EncryptedString)
	require.NoError(t, err)
	sealed, err := env.Sealed()
	require.NoError(t, err)
	plaintext, err := ts.session.secret.Decrypt(sealed)
	require.NoError(t, err)

	var resp proto.Response
	require.NoError(t, json.Unmarshal(plaintext, &resp))
	return &resp
}

func requireGreeting(t *testing.T, frame []byte) {
	t.Helper()
	var g proto.Greeting
	require.NoError(t, json.Unmarshal(frame, &g))
	assert.Equal(t, proto.CmdConnected, g.Command)
	assert.Equal(t, testAppID, g.AppID)
}

func TestSessionGreetsThenHandlesEOF(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	require.NoError(t, ts.session.Run())

	frames := ts.popFrames(t)
	require.Len(t, frames, 1)
	requireGreeting(t, frames[0])
}

func TestSessionHandshake(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	ts := newTestSession(t, &testGate{})

	message, err := json.Marshal(&proto.Handshake{
		Command:   proto.CmdSetupEncryption,
		PublicKey: base64.StdEncoding.EncodeToString(der),
	})
	require.NoError(t, err)
	ts.in.Write(frameBytes(t, &proto.Frame{AppID: testAppID, Message: message}))

	require.NoError(t, ts.session.Run())

	frames := ts.popFrames(t)
	require.Len(t, frames, 2)
	requireGreeting(t, frames[0])

	var reply proto.HandshakeReply
	require.NoError(t, json.Unmarshal(frames[1], &reply))
	assert.Equal(t, proto.CmdSetupEncryption, reply.Command)
	assert.Equal(t, testAppID, reply.AppID)

	wrapped, err := base64.StdEncoding.DecodeString(reply.SharedSecret)
	require.NoError(t, err)
	secret, err := rsa.DecryptOAEP(sha1.New(), nil, priv, wrapped, nil)
	require.NoError(t, err)
	require.Len(t, secret, cbchmac.SecretSize)
	assert.Equal(t, ts.session.secret.Bytes(), secret)
}

func TestGetBiometricsStatus(t *testing.T) {
	tests := []struct {
		name string
		gate *testGate
		want int32
	}{
		{"available", &testGate{availability: presence.Available}, proto.StatusAvailable},
		{"device absent", &testGate{availability: presence.DeviceAbsent}, proto.StatusHardwareUnavailable},
		{"not configured", &testGate{availability: presence.NotConfigured}, proto.StatusNotConfigured},
		{"disabled by policy", &testGate{availability: presence.DisabledByPolicy}, proto.StatusDisabled},
		{"query error", &testGate{availabilityErr: errors.New("probe failed")}, proto.StatusDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestSession(t, tt.gate)
			ts.pushCommand(t, &proto.Command{Command: proto.CmdGetBiometricsStatus, MessageID: 1})

			require.NoError(t, ts.session.Run())

			frames := ts.popFrames(t)
			require.Len(t, frames, 2)
			resp := ts.openResponse(t, frames[1])

			assert.Equal(t, proto.CmdGetBiometricsStatus, resp.Command)
			assert.Equal(t, int64(1), resp.MessageID)
			code, isNumber := resp.Response.Number()
			require.True(t, isNumber)
			assert.Equal(t, tt.want, code)
			assert.Nil(t, resp.UserKeyB64)
		})
	}
}

func TestAuthenticateWithBiometrics(t *testing.T) {
	tests := []struct {
		name string
		gate *testGate
		want bool
	}{
		{"passed", &testGate{verifyOK: true}, true},
		{"failed", &testGate{verifyOK: false}, false},
		{"gate error collapses to false", &testGate{verifyErr: errors.New("prompt dismissed")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestSession(t, tt.gate)
			ts.pushCommand(t, &proto.Command{Command: proto.CmdAuthenticateWithBiometrics, MessageID: 2})

			require.NoError(t, ts.session.Run())

			frames := ts.popFrames(t)
			require.Len(t, frames, 2)
			resp := ts.openResponse(t, frames[1])

			ok, isBool := resp.Response.Bool()
			require.True(t, isBool)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestUnlockWithBiometricsForUser(t *testing.T) {
	t.Run("success returns the key", func(t *testing.T) {
		ts := newTestSession(t, &testGate{availability: presence.Available, verifyOK: true})
		require.NoError(t, ts.vault.Import("user-1", "unlock-key"))

		ts.pushCommand(t, &proto.Command{
			Command:   proto.CmdUnlockWithBiometricsForUser,
			MessageID: 3,
			UserID:    "user-1",
		})

		require.NoError(t, ts.session.Run())

		frames := ts.popFrames(t)
		require.Len(t, frames, 2)
		resp := ts.openResponse(t, frames[1])

		ok, isBool := resp.Response.Bool()
		require.True(t, isBool)
		assert.True(t, ok)
		require.NotNil(t, resp.UserKeyB64)
		assert.Equal(t, "unlock-key", *resp.UserKeyB64)
	})

	t.Run("missing entry collapses to false", func(t *testing.T) {
		ts := newTestSession(t, &testGate{availability: presence.Available, verifyOK: true})

		ts.pushCommand(t, &proto.Command{
			Command:   proto.CmdUnlockWithBiometricsForUser,
			MessageID: 4,
			UserID:    "nobody",
		})

		require.NoError(t, ts.session.Run())

		frames := ts.popFrames(t)
		require.Len(t, frames, 2)
		resp := ts.openResponse(t, frames[1])

		ok, isBool := resp.Response.Bool()
		require.True(t, isBool)
		assert.False(t, ok)
		assert.Nil(t, resp.UserKeyB64)
	})

	t.Run("missing userId is fatal", func(t *testing.T) {
		ts := newTestSession(t, &testGate{})

		ts.pushCommand(t, &proto.Command{Command: proto.CmdUnlockWithBiometricsForUser, MessageID: 5})

		err := ts.session.Run()
		assert.ErrorIs(t, err, ErrProtocol)
	})
}

func TestGetBiometricsStatusForUser(t *testing.T) {
	t.Run("entry exists", func(t *testing.T) {
		ts := newTestSession(t, &testGate{})
		require.NoError(t, ts.vault.Import("user-1", "unlock-key"))

		ts.pushCommand(t, &proto.Command{
			Command:   proto.CmdGetBiometricsStatusForUser,
			MessageID: 6,
			UserID:    "user-1",
		})

		require.NoError(t, ts.session.Run())

		frames := ts.popFrames(t)
		require.Len(t, frames, 2)
		resp := ts.openResponse(t, frames[1])

		code, isNumber := resp.Response.Number()
		require.True(t, isNumber)
		assert.Equal(t, int32(proto.StatusAvailable), code)
	})

	t.Run("no entry", func(t *testing.T) {
		ts := newTestSession(t, &testGate{})

		ts.pushCommand(t, &proto.Command{
			Command:   proto.CmdGetBiometricsStatusForUser,
			MessageID: 7,
			UserID:    "nobody",
		})

		require.NoError(t, ts.session.Run())

		frames := ts.popFrames(t)
		require.Len(t, frames, 2)
		resp := ts.openResponse(t, frames[1])

		code, isNumber := resp.Response.Number()
		require.True(t, isNumber)
		assert.Equal(t, int32(proto.StatusNoUserKey), code)
	})

	t.Run("missing userId is fatal", func(t *testing.T) {
		ts := newTestSession(t, &testGate{})

		ts.pushCommand(t, &proto.Command{Command: proto.CmdGetBiometricsStatusForUser, MessageID: 8})

		err := ts.session.Run()
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("vault failure is fatal", func(t *testing.T) {
		ts := newTestSession(t, &testGate{})
		require.NoError(t, ts.store.Close())

		ts.pushCommand(t, &proto.Command{
			Command:   proto.CmdGetBiometricsStatusForUser,
			MessageID: 9,
			UserID:    "user-1",
		})

		err := ts.session.Run()
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrClosed)
	})
}

func TestUnknownCommandIgnored(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	ts.pushCommand(t, &proto.Command{Command: "rebootUniverse", MessageID: 10})
	ts.pushCommand(t, &proto.Command{Command: proto.CmdGetBiometricsStatus, MessageID: 11})

	require.NoError(t, ts.session.Run())

	// Greeting plus one response: the unknown command produced nothing.
	frames := ts.popFrames(t)
	require.Len(t, frames, 2)
	resp := ts.openResponse(t, frames[1])
	assert.Equal(t, int64(11), resp.MessageID)
}

func TestTruncatedFrameIsOrderlyShutdown(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	// Declare ten bytes, deliver three, close.
	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], 10)
	ts.in.Write(lenBuf[:])
	ts.in.Write([]byte("abc"))

	require.NoError(t, ts.session.Run())
}

func TestZeroLengthFrameIsOrderlyShutdown(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	var lenBuf [4]byte
	ts.in.Write(lenBuf[:])

	require.NoError(t, ts.session.Run())
}

func TestTruncatedHeaderIsOrderlyShutdown(t *testing.T) {
	ts := newTestSession(t, &testGate{})
	ts.in.Write([]byte{0x05, 0x00})

	require.NoError(t, ts.session.Run())
}

func TestOversizedFrameIsFatal(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], maxFrameSize+1)
	ts.in.Write(lenBuf[:])

	err := ts.session.Run()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestMissingAppIDIsFatal(t *testing.T) {
	ts := newTestSession(t, &testGate{})
	ts.in.Write(frameBytes(t, map[string]any{"message": map[string]any{"command": "x"}}))

	err := ts.session.Run()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestInvalidJSONIsFatal(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	body := []byte("this is not json")
	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], uint32(len(body)))
	ts.in.Write(lenBuf[:])
	ts.in.Write(body)

	err := ts.session.Run()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestTamperedEnvelopeIsFatal(t *testing.T) {
	ts := newTestSession(t, &testGate{})

	payload, err := json.Marshal(&proto.Command{Command: proto.CmdGetBiometricsStatus, MessageID: 12})
	require.NoError(t, err)
	sealed, err := ts.session.secret.Encrypt(payload)
	require.NoError(t, err)
	sealed.MAC[0] ^= 0x01

	message, err := json.Marshal(proto.NewEncString(sealed))
	require.NoError(t, err)
	ts.in.Write(frameBytes(t, &proto.Frame{AppID: testAppID, Message: message}))

	err = ts.session.Run()
	assert.ErrorIs(t, err, cbchmac.ErrIntegrity)
}

func TestNewSessionValidation(t *testing.T) {
	v := vault.New(storage.NewMemory(), identityHandle{})

	_, err := NewSession(nil)
	assert.Error(t, err)
	_, err = NewSession(&Config{Reader: &bytes.Buffer{}, Writer: &bytes.Buffer{}})
	assert.Error(t, err)
	_, err = NewSession(&Config{Reader: &bytes.Buffer{}, Vault: v})
	assert.Error(t, err)
}
