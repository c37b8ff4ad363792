package authsdk

import "time"

type RegisterRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	FullName        *string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BiometricRequest drives a presence check. Passcode is only read by the
// passcode fallback; a hardware sensor ignores it.
type BiometricRequest struct {
	Reason   string `json:"reason,omitempty"`
	Passcode string `json:"passcode,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     *string    `json:"full_name,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// SessionResponse is returned by every call that establishes a session.
type SessionResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

// SessionStatusResponse describes the current session without its tokens.
type SessionStatusResponse struct {
	State         string        `json:"state"`
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	NeedsRefresh  bool          `json:"needs_refresh"`
}

type BiometricStatusResponse struct {
	Available bool   `json:"available"`
	Mechanism string `json:"mechanism"`
	Enabled   bool   `json:"enabled"`
	Reason    string `json:"reason,omitempty"`
}

// UserInfoResponse is built from the verified access token alone.
type UserInfoResponse struct {
	UserID    string    `json:"sub"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Session  string `json:"session"`
}
