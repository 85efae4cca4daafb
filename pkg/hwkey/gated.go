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

package hwkey

import (
	"fmt"

	"github.com/jeremyhahn/go-biovault/pkg/presence"
)

// gatedHandle wraps a Handle so Decrypt first clears a presence check.
type gatedHandle struct {
	handle Handle
	gate   presence.Gate
}

// Gated returns a Handle whose Decrypt is gated by the presence check:
// when the gate reports Available, the user must pass VerifyPresence or
// the call fails with ErrPresenceDenied. Any other availability state
// delegates straight to the underlying handle, which is left to enforce
// whatever gating the hardware layer itself provides. Encrypt is never
// gated.
func Gated(handle Handle, gate presence.Gate) Handle {
	return &gatedHandle{handle: handle, gate: gate}
}

func (g *gatedHandle) Encrypt(plaintext []byte) ([]byte, error) {
	return g.handle.Encrypt(plaintext)
}

func (g *gatedHandle) Decrypt(ciphertext []byte) ([]byte, error) {
	availability, err := g.gate.CheckAvailability()
	if err == nil && availability == presence.Available {
		ok, verr := g.gate.VerifyPresence()
		if verr != nil {
			return nil, fmt.Errorf("%w: %v", ErrPresenceDenied, verr)
		}
		if !ok {
			return nil, ErrPresenceDenied
		}
	}
	return g.handle.Decrypt(ciphertext)
}
