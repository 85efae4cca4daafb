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

package presence

import "time"

const (
	focusAttempts = 40
	focusInterval = 50 * time.Millisecond
)

// Focuser brings the OS-native presence prompt to the foreground. The
// native prompt tends to open behind the browser window because the host
// process has no focus of its own.
type Focuser interface {
	FocusPrompt()
}

// focusingGate decorates a Gate so that while VerifyPresence blocks, a
// best-effort goroutine repeatedly raises the prompt. The goroutine shares
// no mutable state with the caller and its failures never affect the
// outcome of the check.
type focusingGate struct {
	Gate
	focuser Focuser
}

// WithFocus wraps gate so every VerifyPresence call runs the prompt
// foregrounding loop alongside it. A nil focuser returns the gate
// unchanged.
func WithFocus(gate Gate, focuser Focuser) Gate {
	if focuser == nil {
		return gate
	}
	return &focusingGate{Gate: gate, focuser: focuser}
}

func (g *focusingGate) VerifyPresence() (bool, error) {
	done := make(chan struct{})
	go func() {
		for i := 0; i < focusAttempts; i++ {
			select {
			case <-done:
				return
			case <-time.After(focusInterval):
				g.focuser.FocusPrompt()
			}
		}
	}()

	ok, err := g.Gate.VerifyPresence()
	close(done)
	return ok, err
}
