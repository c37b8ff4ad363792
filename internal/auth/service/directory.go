package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/store"
	"github.com/aussiebroadwan/cradle/pkg/idx"
)

// Directory is the account source of truth the session manager consults.
type Directory interface {
	// FindAccountByUsername fails with ErrUserNotFound when there is no
	// such account.
	FindAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount fails with ErrUserAlreadyExists when the username or
	// email is taken.
	CreateAccount(ctx context.Context, username, email string, fullName *string, passwordHash string) (domain.Account, error)

	UpdateLastLogin(ctx context.Context, account domain.Account, when time.Time) error
}

// StoreDirectory is the Directory backed by the accounts table.
type StoreDirectory struct {
	Store store.Store

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d *StoreDirectory) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *StoreDirectory) FindAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	a, err := d.Store.Accounts().GetAccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrUserNotFound
	}
	return a, err
}

func (d *StoreDirectory) CreateAccount(ctx context.Context, username, email string, fullName *string, passwordHash string) (domain.Account, error) {
	now := d.now().UTC().Truncate(time.Second)
	a := domain.Account{
		ID:           idx.NewAt(now).String(),
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		FullName:     fullName,
		PasswordHash: passwordHash,
		RegisteredAt: now,
	}

	err := d.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Accounts().CreateAccount(ctx, a)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Account{}, ErrUserAlreadyExists
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (d *StoreDirectory) UpdateLastLogin(ctx context.Context, account domain.Account, when time.Time) error {
	err := d.Store.Accounts().UpdateLastLogin(ctx, account.ID, when)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
