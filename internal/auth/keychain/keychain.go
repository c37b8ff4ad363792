// Package keychain is the persistent credential store: one sealed blob per
// purpose, each call a scoped transaction against the underlying store.
package keychain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/store"
)

var (
	ErrNotFound = errors.New("keychain: not found")
	ErrStorage  = errors.New("keychain: storage failure")
	ErrEncoding = errors.New("keychain: encoding failed")
	ErrDecoding = errors.New("keychain: decoding failed")
)

// Vault is the credential store capability set. Values are opaque bytes.
type Vault interface {
	// Save overwrites silently.
	Save(ctx context.Context, purpose domain.Purpose, value []byte) error

	// Load fails with ErrNotFound when nothing is stored.
	Load(ctx context.Context, purpose domain.Purpose) ([]byte, error)

	// Delete reports whether something was there.
	Delete(ctx context.Context, purpose domain.Purpose) (bool, error)

	Exists(ctx context.Context, purpose domain.Purpose) (bool, error)

	// SaveAll writes every entry or none of them.
	SaveAll(ctx context.Context, entries ...Entry) error

	// Clear removes every purpose in one step.
	Clear(ctx context.Context) error
}

// Entry is one purpose/value pair for SaveAll.
type Entry struct {
	Purpose domain.Purpose
	Value   []byte
}

// Sealer encrypts values at rest. cryptox.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) ([]byte, error)
}

// Keychain implements Vault over a store.Store. Every value is sealed with
// its purpose as associated data, so a blob copied into another slot will
// not open.
type Keychain struct {
	store  store.Store
	sealer Sealer
	now    func() time.Time
}

func New(s store.Store, sealer Sealer) *Keychain {
	return &Keychain{store: s, sealer: sealer, now: time.Now}
}

func checkPurpose(p domain.Purpose) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown purpose %q", ErrStorage, p)
	}
	return nil
}

// storageErr keeps store.ErrNotFound distinct and folds everything else
// into ErrStorage. Our own sentinels pass through.
func storageErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrStorage),
		errors.Is(err, ErrEncoding), errors.Is(err, ErrDecoding):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
}

func (k *Keychain) seal(e Entry) ([]byte, error) {
	sealed, err := k.sealer.Seal(e.Value, []byte(e.Purpose))
	if err != nil {
		return nil, fmt.Errorf("%w: seal %s: %w", ErrEncoding, e.Purpose, err)
	}
	return sealed, nil
}

func (k *Keychain) Save(ctx context.Context, purpose domain.Purpose, value []byte) error {
	return k.SaveAll(ctx, Entry{Purpose: purpose, Value: value})
}

func (k *Keychain) SaveAll(ctx context.Context, entries ...Entry) error {
	sealed := make([][]byte, len(entries))
	for i, e := range entries {
		if err := checkPurpose(e.Purpose); err != nil {
			return err
		}
		var err error
		if sealed[i], err = k.seal(e); err != nil {
			return err
		}
	}

	now := k.now()
	err := k.store.WithTx(ctx, func(tx store.Tx) error {
		for i, e := range entries {
			if err := tx.Credentials().SaveCredential(ctx, e.Purpose, sealed[i], now); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr("save", err)
}

func (k *Keychain) Load(ctx context.Context, purpose domain.Purpose) ([]byte, error) {
	if err := checkPurpose(purpose); err != nil {
		return nil, err
	}

	var sealed []byte
	err := k.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		sealed, err = tx.Credentials().LoadCredential(ctx, purpose)
		return err
	})
	if err != nil {
		return nil, storageErr("load", err)
	}

	value, err := k.sealer.Open(sealed, []byte(purpose))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDecoding, purpose, err)
	}
	return value, nil
}

func (k *Keychain) Delete(ctx context.Context, purpose domain.Purpose) (bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return false, err
	}

	var existed bool
	err := k.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		existed, err = tx.Credentials().DeleteCredential(ctx, purpose)
		return err
	})
	if err != nil {
		return false, storageErr("delete", err)
	}
	return existed, nil
}

func (k *Keychain) Exists(ctx context.Context, purpose domain.Purpose) (bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return false, err
	}

	var exists bool
	err := k.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		exists, err = tx.Credentials().CredentialExists(ctx, purpose)
		return err
	})
	if err != nil {
		return false, storageErr("exists", err)
	}
	return exists, nil
}

func (k *Keychain) Clear(ctx context.Context) error {
	err := k.store.WithTx(ctx, func(tx store.Tx) error {
		for _, p := range domain.AllPurposes {
			if _, err := tx.Credentials().DeleteCredential(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr("clear", err)
}
