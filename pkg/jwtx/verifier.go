package jwtx

import "errors"

// Verifier validates a token and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrAlgMismatch  = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrKindMismatch = errors.New("jwtx: token kind mismatch")
	ErrDecode       = errors.New("jwtx: decode failed")
	ErrEncode       = errors.New("jwtx: encode failed")
	ErrWeakSecret   = errors.New("jwtx: secret too short")
)
