package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the self-issued token pair.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens (30 days).
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Kind tells access and refresh tokens apart. It is carried in the "type"
// claim so a refresh token can never be presented where an access token is
// expected, and the other way round.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known token kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Header is the JOSE header of every token we sign.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// DefaultHeader is the only header we ever produce.
var DefaultHeader = Header{Alg: AlgHS256, Typ: "JWT"}

// Claims is the token payload. Field order is fixed so that encoding the
// same claims always produces the same bytes.
//
// Timestamps are Unix epoch seconds.
type Claims struct {
	Subject   string `json:"sub"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Kind      Kind   `json:"type"`
}

// NewClaims builds claims issued at now and expiring ttl later.
func NewClaims(subject, username, email string, kind Kind, ttl time.Duration, now time.Time) Claims {
	iat := now.Unix()
	return Claims{
		Subject:   subject,
		Username:  username,
		Email:     email,
		IssuedAt:  iat,
		ExpiresAt: iat + int64(ttl/time.Second),
		Kind:      kind,
	}
}

// ValidateExpiry fails with ErrExpired unless exp is strictly after now. A
// token expiring at exactly now is already invalid.
func (c Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt > now.Unix() {
		return nil
	}
	return ErrExpired
}

// ValidateShape rejects claims that are missing their identity or carry an
// unknown kind. We never invent an identity for a token that lacks one.
func (c Claims) ValidateShape() error {
	if c.Subject == "" || !c.Kind.Valid() {
		return ErrInvalidClaim
	}
	if c.ExpiresAt < c.IssuedAt {
		return ErrInvalidClaim
	}
	return nil
}

// ValidateKind checks the token is of the expected kind.
func (c Claims) ValidateKind(want Kind) error {
	if c.Kind != want {
		return ErrKindMismatch
	}
	return nil
}

// Remaining returns how long until the token expires, negative when it
// already has.
func (c Claims) Remaining(now time.Time) time.Duration {
	return time.Unix(c.ExpiresAt, 0).Sub(now)
}

// IssuedTime returns iat as a time.Time.
func (c Claims) IssuedTime() time.Time { return time.Unix(c.IssuedAt, 0) }

// ExpiryTime returns exp as a time.Time.
func (c Claims) ExpiryTime() time.Time { return time.Unix(c.ExpiresAt, 0) }

// The methods below satisfy jwt.Claims so our tokens stay readable by any
// standard HS256 JWT parser.

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(c.ExpiryTime()), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(c.IssuedTime()), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return c.Subject, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }
