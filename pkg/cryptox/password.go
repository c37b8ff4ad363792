package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrInvalidHash      = errors.New("cryptox: invalid hash format")
)

// Argon2Params controls the cost of an Argon2id hash.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  int
}

// DefaultArgon2Params follows the OWASP minimum for Argon2id.
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// PasswordHasher produces and checks PHC-format Argon2id hashes. The pepper
// is appended to every password before hashing and never stored alongside
// the hash.
type PasswordHasher struct {
	pepper []byte
	params Argon2Params

	dummyOnce sync.Once
	dummy     string
}

// NewPasswordHasher returns a hasher using DefaultArgon2Params.
func NewPasswordHasher(pepper []byte) *PasswordHasher {
	return NewPasswordHasherWithParams(pepper, DefaultArgon2Params)
}

// NewPasswordHasherWithParams is NewPasswordHasher with explicit costs. Tests
// use it to keep hashing fast.
func NewPasswordHasherWithParams(pepper []byte, params Argon2Params) *PasswordHasher {
	p := make([]byte, len(pepper))
	copy(p, pepper)
	return &PasswordHasher{pepper: p, params: params}
}

func (h *PasswordHasher) key(password string, salt []byte, iters, mem uint32, par uint8, length uint32) []byte {
	input := make([]byte, 0, len(password)+len(h.pepper))
	input = append(input, password...)
	input = append(input, h.pepper...)
	return argon2.IDKey(input, salt, iters, mem, par, length)
}

// HashPassword returns $argon2id$v=19$m=..,t=..,p=..$salt$hash.
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}
	hash := h.key(password, salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks password against a hash produced by HashPassword.
// A wrong password gives ErrPasswordMismatch; an unreadable hash gives
// ErrInvalidHash.
func (h *PasswordHasher) VerifyPassword(password, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %w", ErrInvalidHash, err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: hash", ErrInvalidHash)
	}

	computed := h.key(password, salt, iters, mem, par, uint32(len(expected))) // #nosec G115
	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// VerifyDummy runs a verification that always fails against a throwaway
// hash with the same parameters. Call it when there is no account to check
// so a missing user costs as much time as a wrong password.
func (h *PasswordHasher) VerifyDummy(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.HashPassword("dummy-password-never-matches")
	})
	_ = h.VerifyPassword(password, h.dummy)
}
