package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// KeySize256 is 256 bits, used for HMAC secrets, AES-256 keys and peppers.
const KeySize256 = 32

// RandomBytes returns size bytes from crypto/rand.
func RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cryptox: size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("cryptox: read random: %w", err)
	}
	return buf, nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token,
// base64url encoded (43 chars). It is safe to log; the token is not.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
