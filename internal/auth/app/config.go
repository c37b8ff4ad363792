package app

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Issuer       string `env:"CRADLE_ISSUER"        envDefault:"cradle"`
	DatabaseFile string `env:"CRADLE_DATABASE_FILE" envDefault:"cradle.db"`

	// Secret files are created on first start when missing.
	SecretFile      string `env:"CRADLE_SECRET_FILE"       envDefault:"secrets/token-secret"`
	KeychainKeyFile string `env:"CRADLE_KEYCHAIN_KEY_FILE" envDefault:"secrets/keychain-key"`
	PepperFile      string `env:"CRADLE_PEPPER_FILE"       envDefault:"secrets/pepper"`

	// PasscodeSecretFile enables the TOTP passcode fallback for the
	// biometric gate. Empty leaves biometric login unavailable.
	PasscodeSecretFile string `env:"CRADLE_PASSCODE_SECRET_FILE"`

	AccessTTL  time.Duration `env:"CRADLE_ACCESS_TTL"  envDefault:"1h"`
	RefreshTTL time.Duration `env:"CRADLE_REFRESH_TTL" envDefault:"720h"`

	Env                 string        `env:"ENV"                   envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT"            envDefault:"json"`
	Host                string        `env:"HOST"                  envDefault:"127.0.0.1"`
	Port                int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	SentryDSN           string        `env:"SENTRY_DSN"`
}

// LoadConfig reads the environment and checks the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the listen address. The default host keeps the service on
// loopback; set HOST to expose it.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	var errs []error
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("CRADLE_ACCESS_TTL must be positive"))
	}
	if c.RefreshTTL < c.AccessTTL {
		errs = append(errs, errors.New("CRADLE_REFRESH_TTL must not be shorter than CRADLE_ACCESS_TTL"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.SecretFile == "" || c.KeychainKeyFile == "" || c.PepperFile == "" {
		errs = append(errs, errors.New("secret file paths must not be empty"))
	}
	return errors.Join(errs...)
}
