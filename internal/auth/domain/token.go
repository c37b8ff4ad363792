package domain

import "time"

// TokenTypeBearer is the only token type we issue.
const TokenTypeBearer = "Bearer"

// RefreshWindow is how long before expiry a pair starts asking to be
// refreshed. It is clamped to the pair's own lifetime.
const RefreshWindow = 300 * time.Second

// TokenPair is an access token and the refresh token that can replace it.
// ExpiresIn and IssuedAt describe the access token.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"` // seconds
	IssuedAt     time.Time `json:"issued_at"`
}

// ExpirationDate is IssuedAt + ExpiresIn.
func (p TokenPair) ExpirationDate() time.Time {
	return p.IssuedAt.Add(time.Duration(p.ExpiresIn) * time.Second)
}

// IsExpired reports now > ExpirationDate.
func (p TokenPair) IsExpired(now time.Time) bool {
	return now.After(p.ExpirationDate())
}

// NeedsRefresh reports whether less than the refresh window remains. The
// window never exceeds ExpiresIn, so this turns true strictly before
// IsExpired for any pair with a positive lifetime.
func (p TokenPair) NeedsRefresh(now time.Time) bool {
	window := min(RefreshWindow, time.Duration(p.ExpiresIn)*time.Second)
	return p.ExpirationDate().Sub(now) < window
}
