package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
)

type credentialsRepo struct {
	db dbtx
}

// SaveCredential deletes then inserts, so a repeat save never trips the
// primary key. Run it inside a transaction to keep the pair atomic.
func (r *credentialsRepo) SaveCredential(ctx context.Context, purpose domain.Purpose, value []byte, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE purpose = ?`, purpose.String()); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (purpose, value, updated_at) VALUES (?, ?, ?)`,
		purpose.String(), value, now.Unix(),
	)
	return err
}

func (r *credentialsRepo) LoadCredential(ctx context.Context, purpose domain.Purpose) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE purpose = ?`, purpose.String()).Scan(&value)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return value, nil
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, purpose domain.Purpose) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE purpose = ?`, purpose.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *credentialsRepo) CredentialExists(ctx context.Context, purpose domain.Purpose) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE purpose = ?)`, purpose.String(),
	).Scan(&exists)
	return exists, err
}
