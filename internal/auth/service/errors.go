package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
)

var (
	ErrInvalidCredentials     = errors.New("invalid_credentials")
	ErrUserAlreadyExists      = errors.New("user_already_exists")
	ErrUserNotFound           = errors.New("user_not_found")
	ErrRegistrationFailed     = errors.New("registration_failed")
	ErrTokenInvalid           = errors.New("token_invalid")
	ErrTokenExpired           = errors.New("token_expired")
	ErrBiometricUnavailable   = errors.New("biometric_unavailable")
	ErrBiometricNotEnrolled   = errors.New("biometric_not_enrolled")
	ErrBiometricLockout       = errors.New("biometric_lockout")
	ErrBiometricUserCancelled = errors.New("biometric_user_cancelled")
	ErrBiometricFailed        = errors.New("biometric_failed")
	ErrStorage                = errors.New("storage_error")
	ErrDecoding               = errors.New("decoding_error")
	ErrEncoding               = errors.New("encoding_error")
	ErrNotAuthenticated       = errors.New("not_authenticated")
)

// RegistrationError says why a registration was refused before anything
// was stored. Reason is safe to show the user.
type RegistrationError struct {
	Reason string
}

func (e *RegistrationError) Error() string {
	return "registration_failed: " + e.Reason
}

func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistrationFailed
}

type errorInfo struct {
	err     error
	message string
}

// Order matters: an expired token is also an invalid one, and the more
// specific message wins.
var taxonomy = []errorInfo{
	{ErrInvalidCredentials, "The username or password is incorrect."},
	{ErrUserAlreadyExists, "An account with that username or email already exists."},
	{ErrUserNotFound, "No saved session was found. Please sign in with your password."},
	{ErrTokenExpired, "Your session has expired. Please sign in again."},
	{ErrTokenInvalid, "Your session is no longer valid. Please sign in again."},
	{ErrBiometricUnavailable, "Biometric sign-in is not available on this device."},
	{ErrBiometricNotEnrolled, "No biometrics are enrolled on this device."},
	{ErrBiometricLockout, "Biometric sign-in is locked after too many attempts. Try again later."},
	{ErrBiometricUserCancelled, "Biometric sign-in was cancelled."},
	{ErrBiometricFailed, "Biometric sign-in failed."},
	{ErrStorage, "Your credentials could not be saved or read. Please try again."},
	{ErrDecoding, "Saved credentials could not be read."},
	{ErrEncoding, "Credentials could not be prepared for saving."},
	{ErrNotAuthenticated, "You are not signed in."},
}

const unknownMessage = "Something went wrong. Please try again."

// Code returns the stable taxonomy code for err, or "server_error".
func Code(err error) string {
	if errors.Is(err, ErrRegistrationFailed) {
		return ErrRegistrationFailed.Error()
	}
	for _, e := range taxonomy {
		if errors.Is(err, e.err) {
			return e.err.Error()
		}
	}
	return "server_error"
}

// Describe returns the human-readable message for err. It never includes
// the wrapped detail, which may carry storage or crypto internals.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var regErr *RegistrationError
	if errors.As(err, &regErr) {
		return "Registration failed: " + regErr.Reason + "."
	}
	for _, e := range taxonomy {
		if errors.Is(err, e.err) {
			return e.message
		}
	}
	return unknownMessage
}

// vaultErr maps credential store failures onto the taxonomy.
func vaultErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keychain.ErrDecoding):
		return fmt.Errorf("%w: %s: %w", ErrDecoding, op, err)
	case errors.Is(err, keychain.ErrEncoding):
		return fmt.Errorf("%w: %s: %w", ErrEncoding, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
}

// BiometricError maps gate failures onto the taxonomy. A user choosing the
// password fallback is treated like a cancel: recoverable, offered again.
func BiometricError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, biometric.ErrNotAvailable), errors.Is(err, biometric.ErrPasscodeNotSet):
		return fmt.Errorf("%w: %w", ErrBiometricUnavailable, err)
	case errors.Is(err, biometric.ErrNotEnrolled):
		return fmt.Errorf("%w: %w", ErrBiometricNotEnrolled, err)
	case errors.Is(err, biometric.ErrLockout):
		return fmt.Errorf("%w: %w", ErrBiometricLockout, err)
	case errors.Is(err, biometric.ErrUserCancelled),
		errors.Is(err, biometric.ErrSystemCancelled),
		errors.Is(err, biometric.ErrUserFallback):
		return fmt.Errorf("%w: %w", ErrBiometricUserCancelled, err)
	case errors.Is(err, keychain.ErrNotFound), errors.Is(err, keychain.ErrStorage),
		errors.Is(err, keychain.ErrDecoding), errors.Is(err, keychain.ErrEncoding):
		return vaultErr("biometric", err)
	default:
		return fmt.Errorf("%w: %w", ErrBiometricFailed, err)
	}
}
