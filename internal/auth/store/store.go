package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories so a transaction can hand out the same repos bound to
// itself.
type Store interface {
	Accounts() Accounts
	Credentials() Credentials

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit or
	// Rollback on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Prefer it over Tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByUsername matches case-insensitively.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// GetAccountByEmail matches case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by the caller).
	// A username or email collision gives ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) error

	UpdateLastLogin(ctx context.Context, id string, when time.Time) error
}

// Credentials holds one opaque blob per purpose.
type Credentials interface {
	// SaveCredential replaces whatever is stored under purpose.
	SaveCredential(ctx context.Context, purpose domain.Purpose, value []byte, now time.Time) error

	LoadCredential(ctx context.Context, purpose domain.Purpose) ([]byte, error)

	// DeleteCredential reports whether anything was removed.
	DeleteCredential(ctx context.Context, purpose domain.Purpose) (bool, error)

	CredentialExists(ctx context.Context, purpose domain.Purpose) (bool, error)
}
