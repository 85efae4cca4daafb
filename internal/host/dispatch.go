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
	"fmt"
	"time"

	"github.com/jeremyhahn/go-biovault/pkg/adapters/logger"
	"github.com/jeremyhahn/go-biovault/pkg/metrics"
	"github.com/jeremyhahn/go-biovault/pkg/proto"
)

// dispatch routes a decrypted command to its handler. Unknown tags are
// dropped without a response so unrecognized peers learn nothing about the
// protocol surface.
//
// Failure policy differs per command and is part of the protocol contract:
// unlock failures are swallowed into a Bool(false) response, authenticate
// and status failures collapse to false / disabled, and statusForUser
// failures propagate and end the session.
func (s *Session) dispatch(appID string, cmd *proto.Command) error {
	switch cmd.Command {
	case proto.CmdUnlockWithBiometricsForUser:
		return s.handleUnlock(appID, cmd)
	case proto.CmdAuthenticateWithBiometrics:
		return s.handleAuthenticate(appID, cmd)
	case proto.CmdGetBiometricsStatus:
		return s.handleStatus(appID, cmd)
	case proto.CmdGetBiometricsStatusForUser:
		return s.handleStatusForUser(appID, cmd)
	default:
		s.logger.Debug("ignoring unknown command", logger.String("command", cmd.Command))
		return nil
	}
}

// handleUnlock exports the user's key, gated by the presence check. Every
// failure along the way (presence denied, no vault entry, crypto error)
// becomes a clean Bool(false) response; the peer sees a negative result,
// never an error.
func (s *Session) handleUnlock(appID string, cmd *proto.Command) error {
	if cmd.UserID == "" {
		return fmt.Errorf("%w: missing 'userId' field", ErrProtocol)
	}

	start := time.Now()
	key, err := s.vault.Export(cmd.UserID)
	metrics.UnlockDuration.Observe(time.Since(start).Seconds())
	metrics.RecordCommand(cmd.Command, err)

	if err != nil {
		s.logger.Warn("unlock denied",
			logger.String("user_id", cmd.UserID),
			logger.Error(err))
		return s.sendSealed(appID, proto.NewResponse(cmd.Command, cmd.MessageID, proto.Bool(false)))
	}

	s.logger.Info("unlock granted", logger.String("user_id", cmd.UserID))
	return s.sendSealed(appID, proto.NewResponseWithKey(cmd.Command, cmd.MessageID, proto.Bool(true), &key))
}

// handleAuthenticate runs the presence check directly. Gate errors collapse
// to a false outcome.
func (s *Session) handleAuthenticate(appID string, cmd *proto.Command) error {
	ok, err := s.gate.VerifyPresence()
	if err != nil {
		s.logger.Warn("presence check failed", logger.Error(err))
		ok = false
	}

	metrics.RecordPresenceCheck(ok)
	metrics.RecordCommand(cmd.Command, err)
	return s.sendSealed(appID, proto.NewResponse(cmd.Command, cmd.MessageID, proto.Bool(ok)))
}

// handleStatus reports the presence capability's availability. Query errors
// collapse to the disabled/unknown status code.
func (s *Session) handleStatus(appID string, cmd *proto.Command) error {
	code := int32(proto.StatusDisabled)
	availability, err := s.gate.CheckAvailability()
	if err == nil {
		code = availability.StatusCode()
	} else {
		s.logger.Warn("availability query failed", logger.Error(err))
	}

	metrics.RecordCommand(cmd.Command, err)
	return s.sendSealed(appID, proto.NewResponse(cmd.Command, cmd.MessageID, proto.Number(code)))
}

// handleStatusForUser reports whether the vault holds an entry for the
// user. Unlike the other handlers, vault errors propagate as the call's
// error.
func (s *Session) handleStatusForUser(appID string, cmd *proto.Command) error {
	if cmd.UserID == "" {
		return fmt.Errorf("%w: missing 'userId' field", ErrProtocol)
	}

	exists, err := s.vault.Exists(cmd.UserID)
	metrics.RecordCommand(cmd.Command, err)
	if err != nil {
		return fmt.Errorf("host: vault lookup failed: %w", err)
	}

	code := int32(proto.StatusNoUserKey)
	if exists {
		code = proto.StatusAvailable
	}
	return s.sendSealed(appID, proto.NewResponse(cmd.Command, cmd.MessageID, proto.Number(code)))
}
