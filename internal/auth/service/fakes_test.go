package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/pkg/cryptox"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// fakeClock only moves when told to, or by step on every read.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memDirectory is an in-memory account directory.
type memDirectory struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	created  int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{accounts: map[string]domain.Account{}}
}

func (d *memDirectory) FindAccountByUsername(_ context.Context, username string) (domain.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[strings.ToLower(username)]
	if !ok {
		return domain.Account{}, service.ErrUserNotFound
	}
	return a, nil
}

func (d *memDirectory) CreateAccount(_ context.Context, username, email string, fullName *string, hash string) (domain.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[strings.ToLower(username)]; ok {
		return domain.Account{}, service.ErrUserAlreadyExists
	}
	for _, a := range d.accounts {
		if strings.EqualFold(a.Email, email) {
			return domain.Account{}, service.ErrUserAlreadyExists
		}
	}
	d.created++
	a := domain.Account{
		ID:           fmt.Sprintf("user-%d", d.created),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		RegisteredAt: time.Unix(1_700_000_000, 0).UTC(),
	}
	d.accounts[strings.ToLower(username)] = a
	return a, nil
}

func (d *memDirectory) UpdateLastLogin(_ context.Context, account domain.Account, when time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(account.Username)
	a, ok := d.accounts[key]
	if !ok {
		return service.ErrUserNotFound
	}
	a.LastLoginAt = &when
	d.accounts[key] = a
	return nil
}

// memVault is a credential store that clears its slots in a random order,
// counts every write, and can fail or stall on demand.
type memVault struct {
	mu     sync.Mutex
	data   map[domain.Purpose][]byte
	writes int
	rng    *rand.Rand

	saveErr  error
	clearErr error
	stall    chan struct{}
	entered  chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
}

func newMemVault(seed int64) *memVault {
	return &memVault{
		data: map[domain.Purpose][]byte{},
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (v *memVault) Save(ctx context.Context, p domain.Purpose, value []byte) error {
	return v.SaveAll(ctx, keychain.Entry{Purpose: p, Value: value})
}

func (v *memVault) SaveAll(_ context.Context, entries ...keychain.Entry) error {
	n := v.active.Add(1)
	defer v.active.Add(-1)
	for {
		m := v.maxActive.Load()
		if n <= m || v.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	if v.entered != nil {
		v.entered <- struct{}{}
	}
	if v.stall != nil {
		<-v.stall
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.writes++
	if v.saveErr != nil {
		return v.saveErr
	}
	for _, e := range entries {
		v.data[e.Purpose] = bytes.Clone(e.Value)
	}
	return nil
}

func (v *memVault) Load(_ context.Context, p domain.Purpose) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.data[p]
	if !ok {
		return nil, keychain.ErrNotFound
	}
	return bytes.Clone(b), nil
}

func (v *memVault) Delete(_ context.Context, p domain.Purpose) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.writes++
	_, ok := v.data[p]
	delete(v.data, p)
	return ok, nil
}

func (v *memVault) Exists(_ context.Context, p domain.Purpose) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.data[p]
	return ok, nil
}

func (v *memVault) Clear(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.writes++
	if v.clearErr != nil {
		return v.clearErr
	}
	for _, i := range v.rng.Perm(len(domain.AllPurposes)) {
		delete(v.data, domain.AllPurposes[i])
	}
	return nil
}

func (v *memVault) Writes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writes
}

func (v *memVault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.data)
}

func (v *memVault) Get(p domain.Purpose) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return string(v.data[p])
}

// put stores a credential set directly, bypassing the write counter.
func (v *memVault) put(t *testing.T, u domain.User, access, refresh string) {
	t.Helper()
	raw, err := json.Marshal(u)
	require.NoError(t, err)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[domain.PurposeCachedUser] = raw
	v.data[domain.PurposeAccessToken] = []byte(access)
	v.data[domain.PurposeRefreshToken] = []byte(refresh)
}

// fakeGate is a biometric gate with a scripted answer.
type fakeGate struct {
	mu         sync.Mutex
	enabled    bool
	enabledErr error
	ok         bool
	err        error
	challenges int
}

func (g *fakeGate) IsEnabledForSession(context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled, g.enabledErr
}

func (g *fakeGate) Challenge(context.Context, string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.challenges++
	return g.ok, g.err
}

// countingSigner counts signatures; a refresh signs exactly two tokens.
type countingSigner struct {
	jwtx.Signer
	signs atomic.Int32
}

func (s *countingSigner) Sign(input string) (string, error) {
	s.signs.Add(1)
	return s.Signer.Sign(input)
}

var fastParams = cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

type harness struct {
	clock  *fakeClock
	dir    *memDirectory
	vault  *memVault
	gate   *fakeGate
	signer *countingSigner
	hasher *cryptox.PasswordHasher
	tokens *service.TokenService
	m      *service.SessionManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	base, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	h := &harness{
		clock:  newFakeClock(),
		dir:    newMemDirectory(),
		vault:  newMemVault(time.Now().UnixNano()),
		gate:   &fakeGate{},
		signer: &countingSigner{Signer: base},
		hasher: cryptox.NewPasswordHasherWithParams([]byte("pepper"), fastParams),
	}
	h.tokens = service.NewTokenService(h.signer)
	h.tokens.Now = h.clock.Now
	h.m = service.NewSessionManager(service.SessionConfig{
		Directory: h.dir,
		Tokens:    h.tokens,
		Vault:     h.vault,
		Gate:      h.gate,
		Hasher:    h.hasher,
	})
	return h
}

func (h *harness) addAccount(t *testing.T, username, password string) domain.Account {
	t.Helper()
	hash, err := h.hasher.HashPassword(password)
	require.NoError(t, err)
	a, err := h.dir.CreateAccount(context.Background(), username, username+"@example.com", nil, hash)
	require.NoError(t, err)
	return a
}

// storePair issues a pair for u at the current fake time and stores it as
// a previous run would have.
func (h *harness) storePair(t *testing.T, u domain.User) domain.TokenPair {
	t.Helper()
	pair, err := h.tokens.IssueTokenPair(u.ID, u.Username, u.Email)
	require.NoError(t, err)
	h.vault.put(t, u, pair.AccessToken, pair.RefreshToken)
	h.signer.signs.Store(0)
	return pair
}

var errDiskFull = errors.Join(keychain.ErrStorage, errors.New("disk full"))
