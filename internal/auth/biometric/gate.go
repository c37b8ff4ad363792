package biometric

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

// Gate runs challenges and keeps the per-session opt-in flag.
type Gate struct {
	auth  Authenticator
	vault keychain.Vault
}

func NewGate(auth Authenticator, vault keychain.Vault) *Gate {
	return &Gate{auth: auth, vault: vault}
}

// CheckAvailability probes the device.
func (g *Gate) CheckAvailability(ctx context.Context) Availability {
	a := g.auth.Availability(ctx)
	if !a.Available && a.Reason == nil {
		a.Reason = ErrNotAvailable
	}
	return a
}

type challengeResult struct {
	ok  bool
	err error
}

// Challenge asks the user to prove presence. Cancelling ctx ends the wait
// with ErrUserCancelled, whatever the device is still doing.
func (g *Gate) Challenge(ctx context.Context, reason string) (bool, error) {
	log := slogx.FromContext(ctx)

	if a := g.CheckAvailability(ctx); !a.Available {
		return false, a.Reason
	}

	done := make(chan challengeResult, 1)
	go func() {
		ok, err := g.auth.Authenticate(ctx, reason)
		done <- challengeResult{ok: ok, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Info("biometric challenge dismissed")
		return false, ErrUserCancelled
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.Canceled) {
				return false, ErrUserCancelled
			}
			if errors.Is(r.err, context.DeadlineExceeded) {
				return false, ErrSystemCancelled
			}
			log.Info("biometric challenge failed", slogx.Err(r.err))
			return false, r.err
		}
		return r.ok, nil
	}
}

// IsEnabledForSession reads the stored opt-in flag. No flag means off.
func (g *Gate) IsEnabledForSession(ctx context.Context) (bool, error) {
	on, err := keychain.LoadBool(ctx, g.vault, domain.PurposeBiometricEnabled)
	if errors.Is(err, keychain.ErrNotFound) {
		return false, nil
	}
	return on, err
}

// Enable turns the flag on, but only after a successful challenge.
func (g *Gate) Enable(ctx context.Context, reason string) error {
	ok, err := g.Challenge(ctx, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRecognised
	}
	if err := keychain.SaveBool(ctx, g.vault, domain.PurposeBiometricEnabled, true); err != nil {
		return fmt.Errorf("biometric: enable: %w", err)
	}
	return nil
}

// Disable turns the flag off. Opting out never needs a challenge.
func (g *Gate) Disable(ctx context.Context) error {
	if err := keychain.SaveBool(ctx, g.vault, domain.PurposeBiometricEnabled, false); err != nil {
		return fmt.Errorf("biometric: disable: %w", err)
	}
	return nil
}
