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

// Package host runs one native messaging session with a browser extension:
// a blocking read/process/write loop over a length-prefixed frame stream,
// the encryption handshake, and command dispatch against the vault and the
// presence gate.
//
// The loop is strictly sequential. One frame is fully read, decrypted,
// dispatched, and answered before the next frame is read; there is no
// pipelining and no concurrent in-flight request.
package host

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-biovault/pkg/adapters/logger"
	"github.com/jeremyhahn/go-biovault/pkg/crypto/cbchmac"
	"github.com/jeremyhahn/go-biovault/pkg/crypto/keywrap"
	"github.com/jeremyhahn/go-biovault/pkg/metrics"
	"github.com/jeremyhahn/go-biovault/pkg/presence"
	"github.com/jeremyhahn/go-biovault/pkg/proto"
	"github.com/jeremyhahn/go-biovault/pkg/vault"
)

// DefaultAppID is the peer application id announced in the greeting frame.
const DefaultAppID = "com.8bit.bitwarden"

// maxFrameSize bounds a declared frame length. Real extension messages are
// well under 64 KiB; anything larger is a corrupt or hostile peer.
const maxFrameSize = 1 << 20

// ErrProtocol is returned for malformed frames: invalid JSON, a missing
// appId field, or an unparseable sealed envelope. Protocol errors are fatal
// to the session.
var ErrProtocol = errors.New("host: protocol violation")

// Config holds the session dependencies.
type Config struct {
	// Reader and Writer carry the framed channel. In production these
	// are the process's stdin and stdout.
	Reader io.Reader
	Writer io.Writer

	// Vault serves unlock-key exports and existence checks.
	Vault *vault.Vault

	// Gate answers availability queries and presence checks. Defaults
	// to presence.UnavailableGate.
	Gate presence.Gate

	// AppID is announced in the greeting frame. Defaults to
	// DefaultAppID.
	AppID string

	// Logger receives session logs (never the channel itself). Defaults
	// to a no-op logger.
	Logger logger.Logger
}

// Session is one native messaging session. The session secret is generated
// eagerly at construction, before the first frame is read, so the handshake
// and sealed requests may arrive in either order.
type Session struct {
	r      *bufio.Reader
	w      *bufio.Writer
	secret *cbchmac.Key
	vault  *vault.Vault
	gate   presence.Gate
	appID  string
	logger logger.Logger
}

// NewSession creates a session and generates its secret.
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil || cfg.Reader == nil || cfg.Writer == nil {
		return nil, fmt.Errorf("host: reader and writer are required")
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("host: vault is required")
	}

	gate := cfg.Gate
	if gate == nil {
		gate = presence.UnavailableGate()
	}
	appID := cfg.AppID
	if appID == "" {
		appID = DefaultAppID
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NoOp()
	}

	secret, err := cbchmac.NewKey()
	if err != nil {
		return nil, fmt.Errorf("host: failed to generate session secret: %w", err)
	}

	return &Session{
		r:      bufio.NewReader(cfg.Reader),
		w:      bufio.NewWriter(cfg.Writer),
		secret: secret,
		vault:  cfg.Vault,
		gate:   gate,
		appID:  appID,
		logger: log.With(logger.String("session_id", uuid.New().String())),
	}, nil
}

// Run processes frames until the peer closes the stream. A closed stream,
// even mid-frame, is an orderly shutdown and returns nil. Any protocol or
// crypto failure ends the session with an error; there is no per-message
// recovery.
func (s *Session) Run() error {
	if err := s.writeFrame(&proto.Greeting{Command: proto.CmdConnected, AppID: s.appID}); err != nil {
		return err
	}
	s.logger.Info("session started")

	for {
		frame, err := s.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("peer closed the channel")
				return nil
			}
			metrics.RecordFrame(err)
			return err
		}
		metrics.RecordFrame(nil)

		if err := s.handleFrame(frame); err != nil {
			s.logger.Error("session failed", logger.Error(err))
			return err
		}
	}
}

// readFrame reads one length-prefixed frame. A stream that closes before or
// during a frame, or a frame declaring zero length, reports io.EOF.
func (s *Session) readFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("host: failed to read frame header: %w", err)
	}

	// The browser writes the length in host byte order.
	length := binary.NativeEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, io.EOF
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit", ErrProtocol, length)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(s.r, frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("host: failed to read frame body: %w", err)
	}
	return frame, nil
}

// writeFrame serializes v and writes it length-prefixed.
func (s *Session) writeFrame(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("host: failed to encode frame: %w", err)
	}

	var lenBuf [4]byte
	binary.NativeEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := s.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("host: failed to write frame header: %w", err)
	}
	if _, err := s.w.Write(body); err != nil {
		return fmt.Errorf("host: failed to write frame body: %w", err)
	}
	return s.w.Flush()
}

// handleFrame routes one frame: the clear-text handshake, or a sealed
// command.
func (s *Session) handleFrame(frame []byte) error {
	var outer proto.Frame
	if err := json.Unmarshal(frame, &outer); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrProtocol, err)
	}
	if outer.AppID == "" {
		return fmt.Errorf("%w: missing 'appId' field", ErrProtocol)
	}
	if len(outer.Message) == 0 {
		return fmt.Errorf("%w: missing 'message' field", ErrProtocol)
	}

	var hs proto.Handshake
	if err := json.Unmarshal(outer.Message, &hs); err == nil &&
		hs.Command == proto.CmdSetupEncryption && hs.PublicKey != "" {
		return s.handleHandshake(outer.AppID, &hs)
	}

	var env proto.EncString
	if err := json.Unmarshal(outer.Message, &env); err != nil {
		return fmt.Errorf("%w: message is neither handshake nor sealed envelope: %v", ErrProtocol, err)
	}
	sealed, err := env.Sealed()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	plaintext, err := s.secret.Decrypt(sealed)
	if err != nil {
		return fmt.Errorf("host: failed to open sealed message: %w", err)
	}

	var cmd proto.Command
	if err := json.Unmarshal(plaintext, &cmd); err != nil {
		return fmt.Errorf("%w: invalid command payload: %v", ErrProtocol, err)
	}
	return s.dispatch(outer.AppID, &cmd)
}

// handleHandshake wraps the session secret to the peer's public key and
// replies in clear. Handshake failures are fatal to the session.
func (s *Session) handleHandshake(appID string, hs *proto.Handshake) error {
	wrapped, err := keywrap.WrapBase64(hs.PublicKey, s.secret.Bytes())
	if err != nil {
		return fmt.Errorf("host: handshake failed: %w", err)
	}

	metrics.HandshakesTotal.Inc()
	s.logger.Info("encryption handshake complete", logger.String("app_id", appID))
	return s.writeFrame(&proto.HandshakeReply{
		Command:      proto.CmdSetupEncryption,
		AppID:        appID,
		SharedSecret: wrapped,
	})
}

// sendSealed seals a response under the session secret and writes it
// framed.
func (s *Session) sendSealed(appID string, resp *proto.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("host: failed to encode response: %w", err)
	}
	sealed, err := s.secret.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("host: failed to seal response: %w", err)
	}

	return s.writeFrame(&proto.SealedFrame{
		AppID:     appID,
		MessageID: resp.MessageID,
		Message:   proto.SealedMessage{EncryptedString: proto.NewEncString(sealed).String()},
	})
}
