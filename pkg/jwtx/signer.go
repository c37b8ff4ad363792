package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AlgHS256 is the only algorithm our tokens use.
const AlgHS256 = "HS256"

// MinSecretSize is the smallest HMAC secret we accept, in bytes.
const MinSecretSize = 32

// Signer is our interface for anything that can sign and check a token's
// signing input.
type Signer interface {
	Alg() string
	Sign(signingInput string) (string, error)
	Verify(signingInput, signature string) bool
}

// HS256Signer signs with HMAC-SHA256 over a shared secret.
type HS256Signer struct {
	secret Secret
	codec  *Codec
}

// NewSignerHS256 creates an HS256 signer. The secret is copied so later
// changes to the caller's slice can't change what we sign with.
func NewSignerHS256(secret Secret) (*HS256Signer, error) {
	if len(secret) < MinSecretSize {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretSize)
	}
	return &HS256Signer{
		secret: secret.Clone(),
		codec:  NewCodec(),
	}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign returns the base64url HMAC-SHA256 of signingInput.
func (s *HS256Signer) Sign(signingInput string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(signingInput, []byte(s.secret))
	if err != nil {
		// The jwt error never carries key material, but keep ours generic anyway.
		return "", fmt.Errorf("jwtx: sign: %w", ErrEncode)
	}
	return s.codec.EncodeBytes(sig), nil
}

// Verify recomputes the signature and compares it with the one supplied.
// The comparison is hmac.Equal, so it takes the same time wherever the
// first differing byte is.
func (s *HS256Signer) Verify(signingInput, signature string) bool {
	sig, err := s.codec.DecodeBytes(signature)
	if err != nil {
		return false
	}
	return jwt.SigningMethodHS256.Verify(signingInput, sig, []byte(s.secret)) == nil
}
