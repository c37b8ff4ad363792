package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrSecretTooShort is returned when a secret file holds fewer bytes than
// asked for.
var ErrSecretTooShort = errors.New("cryptox: secret file too short")

// LoadOrGenerateSecret reads a base64url secret from path, or generates
// size random bytes and writes them there (mode 0600) when the file does not
// exist yet. The directory is created if needed.
func LoadOrGenerateSecret(path string, size int) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("cryptox: create secret dir: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return generateSecretFile(path, size)
	case err != nil:
		return nil, fmt.Errorf("cryptox: read secret: %w", err)
	}

	secret, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("cryptox: decode secret %s: %w", filepath.Base(path), err)
	}
	if len(secret) < size {
		return nil, fmt.Errorf("%w: %s has %d bytes, need %d", ErrSecretTooShort, filepath.Base(path), len(secret), size)
	}
	return secret, nil
}

func generateSecretFile(path string, size int) ([]byte, error) {
	secret, err := RandomBytes(size)
	if err != nil {
		return nil, err
	}

	// O_EXCL so two processes starting together can't both write a secret.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create secret: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(base64.RawURLEncoding.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("cryptox: write secret: %w", err)
	}
	return secret, nil
}
