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

// Package presence defines the capability boundary over an OS-level
// user-presence check (Windows Hello, Touch ID, a FIDO2 authenticator).
// The core never implements the check itself; platform integrations supply
// a Gate and the rest of the system treats it as an opaque authority that
// can allow or deny a sensitive operation.
package presence

import "github.com/jeremyhahn/go-biovault/pkg/proto"

// Availability describes the state of the presence-check capability.
type Availability int

const (
	// Available means the device is present, enrolled, and ready.
	Available Availability = iota

	// DeviceAbsent means no presence-capable device is attached.
	DeviceAbsent

	// DeviceBusy means the device exists but is in use.
	DeviceBusy

	// NotConfigured means the device exists but the user has not enrolled.
	NotConfigured

	// DisabledByPolicy means an administrator disabled the capability.
	DisabledByPolicy

	// Unknown means the state could not be determined.
	Unknown
)

// String returns the string representation of the availability state.
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case DeviceAbsent:
		return "device-absent"
	case DeviceBusy:
		return "device-busy"
	case NotConfigured:
		return "not-configured"
	case DisabledByPolicy:
		return "disabled-by-policy"
	default:
		return "unknown"
	}
}

// StatusCode maps an availability state to the protocol status code the
// extension expects.
func (a Availability) StatusCode() int32 {
	switch a {
	case Available:
		return proto.StatusAvailable
	case DeviceAbsent, DeviceBusy:
		return proto.StatusHardwareUnavailable
	case NotConfigured:
		return proto.StatusNotConfigured
	default:
		return proto.StatusDisabled
	}
}

// Gate is the external collaborator contract for user-presence checks.
type Gate interface {
	// CheckAvailability reports whether the presence capability can be
	// used right now. It must be fast and must not show UI.
	CheckAvailability() (Availability, error)

	// VerifyPresence blocks while the OS challenges the user and reports
	// whether they passed. It may take seconds, shows UI, and must be
	// invoked at most once per authorization decision. There is no way
	// to cancel it once started.
	VerifyPresence() (bool, error)
}

// unavailableGate is the default gate on platforms with no integration.
type unavailableGate struct{}

func (unavailableGate) CheckAvailability() (Availability, error) { return Unknown, nil }
func (unavailableGate) VerifyPresence() (bool, error)            { return false, nil }

// UnavailableGate returns a Gate that reports Unknown availability and
// denies every presence check. Hosts built without a platform integration
// use it so status queries still answer honestly.
func UnavailableGate() Gate {
	return unavailableGate{}
}
