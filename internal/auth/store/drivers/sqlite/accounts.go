package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
)

const accountColumns = `id, username, email, full_name, password_hash, registered_at, last_login_at`

type accountsRepo struct {
	db dbtx
}

func (r *accountsRepo) getOne(ctx context.Context, where string, arg any) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where+` LIMIT 1`, arg)

	var (
		a          domain.Account
		fullName   sql.NullString
		registered int64
		lastLogin  sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &fullName, &a.PasswordHash, &registered, &lastLogin); err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.FullName = mapNullStringPtr(fullName)
	a.RegisteredAt = time.Unix(registered, 0).UTC()
	a.LastLoginAt = mapUnixPtr(lastLogin)
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	return r.getOne(ctx, `username = ?`, username)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getOne(ctx, `email = ?`, email)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Username,
		a.Email,
		mapStringNull(a.FullName),
		a.PasswordHash,
		a.RegisteredAt.Unix(),
		mapTimeUnix(a.LastLoginAt),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdateLastLogin(ctx context.Context, id string, when time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_login_at = ? WHERE id = ?`, when.Unix(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
