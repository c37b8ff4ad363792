// Package biometric is the human-presence gate in front of stored
// credentials. It answers pass or fail and never holds a secret itself.
package biometric

import (
	"context"
	"errors"
)

var (
	ErrNotAvailable    = errors.New("biometric: not available")
	ErrNotEnrolled     = errors.New("biometric: not enrolled")
	ErrLockout         = errors.New("biometric: locked out")
	ErrUserCancelled   = errors.New("biometric: cancelled by user")
	ErrUserFallback    = errors.New("biometric: user chose fallback")
	ErrSystemCancelled = errors.New("biometric: cancelled by system")
	ErrPasscodeNotSet  = errors.New("biometric: passcode not set")
	ErrNotRecognised   = errors.New("biometric: not recognised")
)

// Mechanism is the kind of check the device performs.
type Mechanism int

const (
	MechanismNone Mechanism = iota
	MechanismFace
	MechanismFingerprint
	MechanismIris
	MechanismPasscode
)

func (m Mechanism) String() string {
	switch m {
	case MechanismFace:
		return "face"
	case MechanismFingerprint:
		return "fingerprint"
	case MechanismIris:
		return "iris"
	case MechanismPasscode:
		return "passcode"
	default:
		return "none"
	}
}

// MarshalText lets Mechanism appear by name in JSON.
func (m Mechanism) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Availability is the result of a capability probe. Reason is set when
// Available is false.
type Availability struct {
	Available bool
	Mechanism Mechanism
	Reason    error
}

// Authenticator is the device side of the gate.
type Authenticator interface {
	Availability(ctx context.Context) Availability

	// Authenticate blocks until the user passes, fails or dismisses the
	// prompt. A plain failure is (false, nil).
	Authenticate(ctx context.Context, reason string) (bool, error)
}

// Unavailable is the Authenticator for hosts with no biometric hardware.
type Unavailable struct{}

func (Unavailable) Availability(context.Context) Availability {
	return Availability{Mechanism: MechanismNone, Reason: ErrNotAvailable}
}

func (Unavailable) Authenticate(context.Context, string) (bool, error) {
	return false, ErrNotAvailable
}
