package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	"github.com/aussiebroadwan/cradle/pkg/cryptox"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
)

// Secrets is the key material the service needs at startup.
type Secrets struct {
	TokenSecret jwtx.Secret
	KeychainKey []byte
	Pepper      []byte

	// PasscodeSecret is a base32 TOTP secret, empty when the fallback is off.
	PasscodeSecret string
}

// LoadSecrets reads every secret file named in cfg, generating the ones
// that do not exist yet.
func LoadSecrets(cfg Config, logger *slog.Logger) (Secrets, error) {
	var (
		s   Secrets
		err error
	)

	raw, err := cryptox.LoadOrGenerateSecret(cfg.SecretFile, cryptox.KeySize256)
	if err != nil {
		return Secrets{}, fmt.Errorf("token secret: %w", err)
	}
	s.TokenSecret = jwtx.Secret(raw)

	if s.KeychainKey, err = cryptox.LoadOrGenerateSecret(cfg.KeychainKeyFile, cryptox.KeySize256); err != nil {
		return Secrets{}, fmt.Errorf("keychain key: %w", err)
	}
	if s.Pepper, err = cryptox.LoadOrGenerateSecret(cfg.PepperFile, cryptox.KeySize256); err != nil {
		return Secrets{}, fmt.Errorf("pepper: %w", err)
	}

	if cfg.PasscodeSecretFile != "" {
		if s.PasscodeSecret, err = loadOrGeneratePasscode(cfg.PasscodeSecretFile, cfg.Issuer, logger); err != nil {
			return Secrets{}, fmt.Errorf("passcode secret: %w", err)
		}
	}
	return s, nil
}

// loadOrGeneratePasscode keeps the TOTP secret as its base32 text so it
// can be added to an authenticator app straight from the file.
func loadOrGeneratePasscode(path, issuer string, logger *slog.Logger) (string, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s is empty", filepath.Base(path))
		}
		return secret, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	key, err := biometric.NewPasscodeSecret(issuer, "device")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(key.Secret() + "\n"); err != nil {
		return "", err
	}

	logger.Warn("generated passcode secret; enrol it in an authenticator app", "path", path)
	return key.Secret(), nil
}
