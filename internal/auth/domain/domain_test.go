package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestTokenPairRefreshWindow(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	pair := domain.TokenPair{ExpiresIn: 3600, IssuedAt: issued}

	require.Equal(t, issued.Add(time.Hour), pair.ExpirationDate())

	tests := []struct {
		offset       time.Duration
		needsRefresh bool
		expired      bool
	}{
		{0, false, false},
		{3299 * time.Second, false, false},
		{3300 * time.Second, false, false},
		{3300*time.Second + time.Millisecond, true, false},
		{3599 * time.Second, true, false},
		{3600 * time.Second, true, false},
		{3601 * time.Second, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.offset.String(), func(t *testing.T) {
			now := issued.Add(tt.offset)
			require.Equal(t, tt.needsRefresh, pair.NeedsRefresh(now))
			require.Equal(t, tt.expired, pair.IsExpired(now))
		})
	}
}

func TestNeedsRefreshPrecedesExpiry(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)

	for _, expiresIn := range []int64{1, 60, 299, 300, 301, 3600, 2_592_000} {
		pair := domain.TokenPair{ExpiresIn: expiresIn, IssuedAt: issued}

		// The window is at most 300s, so scanning the tail is enough.
		var firstRefresh, firstExpired int64 = -1, -1
		for s := max(0, expiresIn-400); s <= expiresIn+1; s++ {
			now := issued.Add(time.Duration(s) * time.Second)
			if firstRefresh < 0 && pair.NeedsRefresh(now) {
				firstRefresh = s
			}
			if firstExpired < 0 && pair.IsExpired(now) {
				firstExpired = s
			}
		}
		require.GreaterOrEqual(t, firstRefresh, int64(0), "expiresIn=%d", expiresIn)
		require.Less(t, firstRefresh, firstExpired, "expiresIn=%d", expiresIn)
	}
}

func TestPurposes(t *testing.T) {
	require.Len(t, domain.AllPurposes, 4)
	for _, p := range domain.AllPurposes {
		require.True(t, p.Valid(), p)
	}
	require.False(t, domain.Purpose("session-id").Valid())
}

func TestAccountUserDropsHash(t *testing.T) {
	a := domain.Account{ID: "id", Username: "alice", Email: "a@x.io", PasswordHash: "$argon2id$..."}
	u := a.User()
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "id", u.ID)
}
