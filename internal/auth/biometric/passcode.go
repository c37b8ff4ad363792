package biometric

import (
	"context"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultMaxAttempts is how many wrong passcodes in a row trigger lockout.
const DefaultMaxAttempts = 5

// DefaultLockout is how long a lockout lasts.
const DefaultLockout = 5 * time.Minute

var passcodeOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type passcodeKey struct{}

// WithPasscode attaches the passcode the user typed to ctx.
func WithPasscode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, passcodeKey{}, code)
}

func passcodeFromContext(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(passcodeKey{}).(string)
	return code, ok && code != ""
}

// NewPasscodeSecret generates a TOTP secret for the fallback passcode.
func NewPasscodeSecret(issuer, account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      passcodeOpts.Period,
		Digits:      passcodeOpts.Digits,
		Algorithm:   passcodeOpts.Algorithm,
	})
}

// PasscodeAuthenticator is the fallback used where no biometric sensor
// exists: the user proves presence with a current TOTP code, read from the
// request context. Repeated misses lock it out for a while.
type PasscodeAuthenticator struct {
	secret      string
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time

	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
}

// NewPasscodeAuthenticator uses secret, a base32 TOTP secret. An empty
// secret reports ErrPasscodeNotSet.
func NewPasscodeAuthenticator(secret string) *PasscodeAuthenticator {
	return &PasscodeAuthenticator{
		secret:      secret,
		maxAttempts: DefaultMaxAttempts,
		lockout:     DefaultLockout,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (p *PasscodeAuthenticator) WithClock(now func() time.Time) *PasscodeAuthenticator {
	p.now = now
	return p
}

func (p *PasscodeAuthenticator) Availability(context.Context) Availability {
	if p.secret == "" {
		return Availability{Mechanism: MechanismPasscode, Reason: ErrPasscodeNotSet}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.now().Before(p.lockedUntil) {
		return Availability{Mechanism: MechanismPasscode, Reason: ErrLockout}
	}
	return Availability{Available: true, Mechanism: MechanismPasscode}
}

func (p *PasscodeAuthenticator) Authenticate(ctx context.Context, _ string) (bool, error) {
	if p.secret == "" {
		return false, ErrPasscodeNotSet
	}
	code, ok := passcodeFromContext(ctx)
	if !ok {
		return false, ErrUserCancelled
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Before(p.lockedUntil) {
		return false, ErrLockout
	}

	valid, err := totp.ValidateCustom(code, p.secret, now.UTC(), passcodeOpts)
	if err != nil || !valid {
		p.failures++
		if p.failures >= p.maxAttempts {
			p.failures = 0
			p.lockedUntil = now.Add(p.lockout)
			return false, ErrLockout
		}
		return false, nil
	}

	p.failures = 0
	return true, nil
}
