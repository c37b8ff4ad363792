package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

var (
	ErrCiphertextShort = errors.New("cryptox: ciphertext too short")
	ErrOpen            = errors.New("cryptox: decryption failed")
)

// Sealer encrypts small blobs with AES-256-GCM. The output format is
// [12-byte nonce][ciphertext][16-byte tag]. The associated data passed to
// Seal must be passed to Open unchanged, which binds a blob to its slot.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32-byte AES key from keyMaterial with SHA-256.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, errors.New("cryptox: empty key material")
	}
	key := sha256.Sum256(keyMaterial)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create gcm: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal. Any tampering, a wrong key or different aad gives
// ErrOpen.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	nonce, ciphertext := sealed[:n], sealed[n:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
