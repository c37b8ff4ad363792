package domain

import "time"

// User is the public view of an account. The session caches a copy of it
// for display while restoring; the account directory stays the source of
// truth.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     *string    `json:"full_name,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Account is a User plus the fields only the directory and login path see.
type Account struct {
	ID           string
	Username     string
	Email        string
	FullName     *string
	PasswordHash string // argon2id PHC string
	RegisteredAt time.Time
	LastLoginAt  *time.Time
}

// User strips the credential fields.
func (a Account) User() User {
	return User{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		FullName:     a.FullName,
		RegisteredAt: a.RegisteredAt,
		LastLoginAt:  a.LastLoginAt,
	}
}
