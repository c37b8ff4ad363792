package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
	"golang.org/x/sync/semaphore"
)

// State is where the session manager is in its lifecycle.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "logged_out"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// PasswordHasher is satisfied by cryptox.PasswordHasher.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encodedHash string) error
	VerifyDummy(password string)
}

// BiometricGate is the part of biometric.Gate the session needs.
type BiometricGate interface {
	IsEnabledForSession(ctx context.Context) (bool, error)
	Challenge(ctx context.Context, reason string) (bool, error)
}

type SessionConfig struct {
	Directory Directory
	Tokens    *TokenService
	Vault     keychain.Vault
	Gate      BiometricGate
	Hasher    PasswordHasher

	// Now defaults to the token service clock.
	Now func() time.Time
}

// SessionManager owns the current session. Mutating calls run one at a
// time; a second caller waits for the first to finish, or for its own ctx.
// Queries never wait on a mutation.
type SessionManager struct {
	dir    Directory
	tokens *TokenService
	vault  keychain.Vault
	gate   BiometricGate
	hasher PasswordHasher
	now    func() time.Time

	sem *semaphore.Weighted

	mu      sync.RWMutex
	state   State
	session *domain.Session
}

func NewSessionManager(cfg SessionConfig) *SessionManager {
	now := cfg.Now
	if now == nil {
		now = cfg.Tokens.now
	}
	return &SessionManager{
		dir:    cfg.Directory,
		tokens: cfg.Tokens,
		vault:  cfg.Vault,
		gate:   cfg.Gate,
		hasher: cfg.Hasher,
		now:    now,
		sem:    semaphore.NewWeighted(1),
	}
}

// State returns the current lifecycle state.
func (m *SessionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns a copy of the current session, if any.
func (m *SessionManager) Session() (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

func (m *SessionManager) IsAuthenticated() bool {
	_, ok := m.Session()
	return ok
}

func (m *SessionManager) CurrentUser() (domain.User, bool) {
	s, ok := m.Session()
	return s.User, ok
}

// ShouldRefresh reports whether the current tokens are inside the refresh
// window. False when there is no session.
func (m *SessionManager) ShouldRefresh() bool {
	s, ok := m.Session()
	return ok && s.Tokens.NeedsRefresh(m.now())
}

func (m *SessionManager) set(state State, s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.session = s
}

type snapshot struct {
	state   State
	session *domain.Session
}

func (m *SessionManager) snapshot() snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot{state: m.state, session: m.session}
}

func (m *SessionManager) restore(s snapshot) { m.set(s.state, s.session) }

// begin waits for exclusive use of the session. The returned func must be
// called exactly once.
func (m *SessionManager) begin(ctx context.Context) (func(), error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { m.sem.Release(1) }, nil
}

// persist writes the pair and the cached user in one step.
func (m *SessionManager) persist(ctx context.Context, s domain.Session) error {
	cached, err := keychain.JSONEntry(domain.PurposeCachedUser, s.User)
	if err != nil {
		return vaultErr("cache user", err)
	}
	err = m.vault.SaveAll(ctx,
		keychain.StringEntry(domain.PurposeAccessToken, s.Tokens.AccessToken),
		keychain.StringEntry(domain.PurposeRefreshToken, s.Tokens.RefreshToken),
		cached,
	)
	return vaultErr("save session", err)
}

// establish issues a pair for u, persists it and enters Authenticated.
// Nothing changes in memory if persisting fails.
func (m *SessionManager) establish(ctx context.Context, u domain.User) (domain.Session, error) {
	pair, err := m.tokens.IssueTokenPair(u.ID, u.Username, u.Email)
	if err != nil {
		return domain.Session{}, err
	}
	s := domain.Session{User: u, Tokens: pair}
	if err := m.persist(ctx, s); err != nil {
		return domain.Session{}, err
	}
	m.set(StateAuthenticated, &s)
	return s, nil
}

// Register creates an account and signs it in. Shape problems are
// reported before anything is stored.
func (m *SessionManager) Register(ctx context.Context, r Registration) (domain.Session, error) {
	if err := r.Validate(); err != nil {
		return domain.Session{}, err
	}

	release, err := m.begin(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	prev := m.snapshot()
	m.set(StateAuthenticating, prev.session)

	s, err := m.register(ctx, r)
	if err != nil {
		m.restore(prev)
		return domain.Session{}, err
	}
	slogx.FromContext(ctx).Info("registered", slog.String("user_id", s.User.ID))
	return s, nil
}

func (m *SessionManager) register(ctx context.Context, r Registration) (domain.Session, error) {
	hash, err := m.hasher.HashPassword(r.Password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: hash password: %w", ErrEncoding, err)
	}

	account, err := m.dir.CreateAccount(ctx, r.Username, r.Email, r.FullName, hash)
	if errors.Is(err, ErrUserAlreadyExists) {
		return domain.Session{}, err
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return m.establish(ctx, account.User())
}

// Login checks a username and password. An unknown user and a wrong
// password give the same ErrInvalidCredentials, after the same amount of
// hashing work.
func (m *SessionManager) Login(ctx context.Context, c Credentials) (domain.Session, error) {
	if err := c.Validate(); err != nil {
		return domain.Session{}, err
	}

	release, err := m.begin(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	prev := m.snapshot()
	m.set(StateAuthenticating, prev.session)

	s, err := m.login(ctx, c)
	if err != nil {
		m.restore(prev)
		return domain.Session{}, err
	}
	slogx.FromContext(ctx).Info("logged in", slog.String("user_id", s.User.ID))
	return s, nil
}

func (m *SessionManager) login(ctx context.Context, c Credentials) (domain.Session, error) {
	log := slogx.FromContext(ctx)

	account, err := m.dir.FindAccountByUsername(ctx, c.Username)
	if errors.Is(err, ErrUserNotFound) {
		m.hasher.VerifyDummy(c.Password)
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: find account: %w", ErrStorage, err)
	}

	if err := m.hasher.VerifyPassword(c.Password, account.PasswordHash); err != nil {
		log.Info("login rejected", slog.String("user_id", account.ID), slogx.Err(err))
		return domain.Session{}, ErrInvalidCredentials
	}

	now := m.now().UTC().Truncate(time.Second)
	if err := m.dir.UpdateLastLogin(ctx, account, now); err != nil {
		log.Warn("update last login failed", slog.String("user_id", account.ID), slogx.Err(err))
	} else {
		account.LastLoginAt = &now
	}
	return m.establish(ctx, account.User())
}

// stored is the credential set as read back from the vault.
type stored struct {
	user    domain.User
	access  string
	refresh string
}

var (
	errNothingStored = errors.New("no stored session")
	errNoValidToken  = errors.New("no valid stored token")
)

// load reads the cached user and both tokens. It fails with
// errNothingStored when none of the three exist and ErrDecoding when only
// some do.
func (m *SessionManager) load(ctx context.Context) (stored, error) {
	var (
		st      stored
		missing int
	)

	user, err := keychain.LoadJSON[domain.User](ctx, m.vault, domain.PurposeCachedUser)
	switch {
	case errors.Is(err, keychain.ErrNotFound):
		missing++
	case err != nil:
		return stored{}, vaultErr("load user", err)
	}
	st.user = user

	for _, slot := range []struct {
		purpose domain.Purpose
		dst     *string
	}{
		{domain.PurposeAccessToken, &st.access},
		{domain.PurposeRefreshToken, &st.refresh},
	} {
		v, err := keychain.LoadString(ctx, m.vault, slot.purpose)
		switch {
		case errors.Is(err, keychain.ErrNotFound):
			missing++
		case err != nil:
			return stored{}, vaultErr("load "+slot.purpose.String(), err)
		}
		*slot.dst = v
	}

	switch {
	case missing == 3:
		return stored{}, errNothingStored
	case missing > 0:
		return stored{}, fmt.Errorf("%w: incomplete credential set", ErrDecoding)
	case st.user.ID == "":
		// A cached user with no id cannot be bound to any token.
		return stored{}, fmt.Errorf("%w: cached user has no id", ErrDecoding)
	}
	return st, nil
}

// resume turns a stored credential set into a live session. A valid access
// token is used as is; otherwise a valid refresh token is exchanged for a
// new pair. Both must belong to the cached user. Fails with
// errNoValidToken when neither token is usable.
func (m *SessionManager) resume(ctx context.Context, st stored) (domain.Session, error) {
	if claims, err := m.tokens.ValidateKind(st.access, jwtx.KindAccess); err == nil && claims.Subject == st.user.ID {
		s := domain.Session{User: st.user, Tokens: pairFromAccess(st.access, st.refresh, claims)}
		m.set(StateAuthenticated, &s)
		return s, nil
	}

	claims, err := m.tokens.ValidateKind(st.refresh, jwtx.KindRefresh)
	if err != nil || claims.Subject != st.user.ID {
		return domain.Session{}, errNoValidToken
	}

	stale := domain.Session{User: st.user, Tokens: domain.TokenPair{
		AccessToken:  st.access,
		RefreshToken: st.refresh,
		TokenType:    domain.TokenTypeBearer,
	}}
	m.set(StateRefreshing, &stale)
	return m.refresh(ctx, st.refresh, &st.user)
}

// LoginWithBiometric signs in from the stored credentials after a
// successful presence check. The check runs before the session is locked,
// so an open prompt never holds up a logout.
func (m *SessionManager) LoginWithBiometric(ctx context.Context, reason string) (domain.Session, error) {
	enabled, err := m.gate.IsEnabledForSession(ctx)
	if err != nil {
		return domain.Session{}, BiometricError(err)
	}
	if !enabled {
		return domain.Session{}, fmt.Errorf("%w: not enabled", ErrBiometricFailed)
	}

	ok, err := m.gate.Challenge(ctx, reason)
	if err != nil {
		return domain.Session{}, BiometricError(err)
	}
	if !ok {
		return domain.Session{}, ErrBiometricFailed
	}

	release, err := m.begin(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	prev := m.snapshot()
	m.set(StateAuthenticating, prev.session)

	st, err := m.load(ctx)
	if err == nil {
		var s domain.Session
		if s, err = m.resume(ctx, st); err == nil {
			slogx.FromContext(ctx).Info("biometric login", slog.String("user_id", s.User.ID))
			return s, nil
		}
	}

	m.restore(prev)
	if errors.Is(err, errNothingStored) || errors.Is(err, errNoValidToken) {
		return domain.Session{}, ErrUserNotFound
	}
	return domain.Session{}, err
}

// RestoreSession reconciles stored credentials at startup. It always ends
// in Authenticated or LoggedOut. When it ends logged out, stored
// credentials have been cleared; the returned error says why, and is nil
// when there was simply nothing usable.
func (m *SessionManager) RestoreSession(ctx context.Context) (State, error) {
	release, err := m.begin(ctx)
	if err != nil {
		return m.State(), err
	}
	defer release()

	log := slogx.FromContext(ctx)
	m.set(StateAuthenticating, nil)

	st, err := m.load(ctx)
	if errors.Is(err, errNothingStored) {
		m.set(StateLoggedOut, nil)
		return StateLoggedOut, nil
	}
	if err == nil {
		var s domain.Session
		if s, err = m.resume(ctx, st); err == nil {
			log.Info("session restored", slog.String("user_id", s.User.ID))
			return StateAuthenticated, nil
		}
	}

	log.Info("session not restored", slogx.Err(err))
	if clearErr := m.vault.Clear(ctx); clearErr != nil {
		log.Warn("clear credentials failed", slogx.Err(clearErr))
	}
	m.set(StateLoggedOut, nil)

	if errors.Is(err, errNoValidToken) {
		return StateLoggedOut, nil
	}
	return StateLoggedOut, err
}

// Refresh exchanges a refresh token for a new pair. Access tokens are
// refused with ErrTokenInvalid. On failure the session is left as it was.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	release, err := m.begin(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	prev := m.snapshot()
	if prev.session != nil {
		m.set(StateRefreshing, prev.session)
	}

	var owner *domain.User
	if prev.session != nil {
		owner = &prev.session.User
	}
	s, err := m.refresh(ctx, refreshToken, owner)
	if err != nil {
		m.restore(prev)
		return domain.Session{}, err
	}
	return s, nil
}

// RefreshIfNeeded refreshes the current session when it is inside the
// refresh window and returns it either way.
func (m *SessionManager) RefreshIfNeeded(ctx context.Context) (domain.Session, error) {
	release, err := m.begin(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	prev := m.snapshot()
	if prev.session == nil {
		return domain.Session{}, ErrNotAuthenticated
	}
	if !prev.session.Tokens.NeedsRefresh(m.now()) {
		return *prev.session, nil
	}

	m.set(StateRefreshing, prev.session)
	s, err := m.refresh(ctx, prev.session.Tokens.RefreshToken, &prev.session.User)
	if err != nil {
		m.restore(prev)
		return domain.Session{}, err
	}
	return s, nil
}

// refresh validates token as a refresh token and issues a new pair for the
// identity it carries. When owner is set the token must belong to it, and
// owner stays the session user. Callers hold the session lock.
func (m *SessionManager) refresh(ctx context.Context, token string, owner *domain.User) (domain.Session, error) {
	claims, err := m.tokens.ValidateKind(token, jwtx.KindRefresh)
	if err != nil {
		return domain.Session{}, err
	}

	user := domain.User{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
	if owner != nil {
		if owner.ID != claims.Subject {
			return domain.Session{}, fmt.Errorf("%w: token belongs to another user", ErrTokenInvalid)
		}
		user = *owner
	}

	s, err := m.establish(ctx, user)
	if err != nil {
		return domain.Session{}, err
	}
	slogx.FromContext(ctx).Info("session refreshed",
		slog.String("user_id", user.ID),
		slogx.TokenAttr("access_token", s.Tokens.AccessToken),
	)
	return s, nil
}

// Logout clears the stored credentials and the session. It is safe to call
// in any state. The session is cleared even if the store is not, and the
// store error is returned.
func (m *SessionManager) Logout(ctx context.Context) error {
	release, err := m.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = m.vault.Clear(ctx)
	m.set(StateLoggedOut, nil)
	if err != nil {
		return vaultErr("clear", err)
	}
	return nil
}
