package keychain_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
	"github.com/aussiebroadwan/cradle/internal/auth/store"
	"github.com/aussiebroadwan/cradle/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/cradle/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// countingStore tracks open transactions so tests can check every call
// releases what it took.
type countingStore struct {
	store.Store
	open  atomic.Int32
	total atomic.Int32
	fail  error
}

func (s *countingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if s.fail != nil {
		return s.fail
	}
	s.open.Add(1)
	s.total.Add(1)
	defer s.open.Add(-1)
	return s.Store.WithTx(ctx, fn)
}

func newKeychain(t *testing.T) (*keychain.Keychain, *countingStore) {
	t.Helper()
	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	sealer, err := cryptox.NewSealer([]byte("test-keychain-key"))
	require.NoError(t, err)

	cs := &countingStore{Store: db}
	return keychain.New(cs, sealer), cs
}

func TestSaveLoadDeleteExists(t *testing.T) {
	ctx := context.Background()
	kc, cs := newKeychain(t)

	_, err := kc.Load(ctx, domain.PurposeAccessToken)
	require.ErrorIs(t, err, keychain.ErrNotFound)

	require.NoError(t, kc.Save(ctx, domain.PurposeAccessToken, []byte("one")))
	require.NoError(t, kc.Save(ctx, domain.PurposeAccessToken, []byte("two")), "save must overwrite")

	got, err := kc.Load(ctx, domain.PurposeAccessToken)
	require.NoError(t, err)
	require.Equal(t, []byte("two"), got)

	exists, err := kc.Exists(ctx, domain.PurposeAccessToken)
	require.NoError(t, err)
	require.True(t, exists)

	existed, err := kc.Delete(ctx, domain.PurposeAccessToken)
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = kc.Delete(ctx, domain.PurposeAccessToken)
	require.NoError(t, err)
	require.False(t, existed)

	require.Zero(t, cs.open.Load())
	require.Positive(t, cs.total.Load())
}

func TestValuesAreSealedAtRest(t *testing.T) {
	ctx := context.Background()
	kc, cs := newKeychain(t)

	require.NoError(t, kc.Save(ctx, domain.PurposeAccessToken, []byte("plain-token")))

	raw, err := cs.Store.Credentials().LoadCredential(ctx, domain.PurposeAccessToken)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "plain-token")

	// Moving the blob to another slot must not yield a usable value.
	require.NoError(t, cs.Store.Credentials().SaveCredential(ctx, domain.PurposeRefreshToken, raw, time.Now()))
	_, err = kc.Load(ctx, domain.PurposeRefreshToken)
	require.ErrorIs(t, err, keychain.ErrDecoding)
	require.Zero(t, cs.open.Load())
}

func TestSaveAllAndClear(t *testing.T) {
	ctx := context.Background()
	kc, _ := newKeychain(t)

	require.NoError(t, kc.SaveAll(ctx,
		keychain.StringEntry(domain.PurposeAccessToken, "a"),
		keychain.StringEntry(domain.PurposeRefreshToken, "r"),
		keychain.BoolEntry(domain.PurposeBiometricEnabled, true),
	))
	require.NoError(t, keychain.SaveJSON(ctx, kc, domain.PurposeCachedUser, domain.User{ID: "u", Username: "alice"}))

	for _, p := range domain.AllPurposes {
		exists, err := kc.Exists(ctx, p)
		require.NoError(t, err)
		require.True(t, exists, p)
	}

	require.NoError(t, kc.Clear(ctx))
	require.NoError(t, kc.Clear(ctx), "clear is idempotent")

	for _, p := range domain.AllPurposes {
		exists, err := kc.Exists(ctx, p)
		require.NoError(t, err)
		require.False(t, exists, p)
	}
}

func TestSaveAllIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	kc, _ := newKeychain(t)

	err := kc.SaveAll(ctx,
		keychain.StringEntry(domain.PurposeAccessToken, "a"),
		keychain.StringEntry(domain.Purpose("bogus"), "x"),
	)
	require.ErrorIs(t, err, keychain.ErrStorage)

	exists, err := kc.Exists(ctx, domain.PurposeAccessToken)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestStorageFailuresAreStorageErrors(t *testing.T) {
	ctx := context.Background()
	kc, cs := newKeychain(t)
	cs.fail = errors.New("disk on fire")

	require.ErrorIs(t, kc.Save(ctx, domain.PurposeAccessToken, []byte("x")), keychain.ErrStorage)

	_, err := kc.Load(ctx, domain.PurposeAccessToken)
	require.ErrorIs(t, err, keychain.ErrStorage)
	require.NotErrorIs(t, err, keychain.ErrNotFound)

	_, err = kc.Delete(ctx, domain.PurposeAccessToken)
	require.ErrorIs(t, err, keychain.ErrStorage)

	_, err = kc.Exists(ctx, domain.PurposeAccessToken)
	require.ErrorIs(t, err, keychain.ErrStorage)

	require.ErrorIs(t, kc.Clear(ctx), keychain.ErrStorage)
}

func TestUnknownPurposeIsRejected(t *testing.T) {
	kc, cs := newKeychain(t)
	_, err := kc.Load(context.Background(), domain.Purpose("session-id"))
	require.ErrorIs(t, err, keychain.ErrStorage)
	require.Zero(t, cs.total.Load(), "no storage access for an invalid purpose")
}
