package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := jwtx.NewClaims("user-1", "alice", "alice@example.com", jwtx.KindAccess, time.Hour, now)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "alice", c.Username)
	require.Equal(t, "alice@example.com", c.Email)
	require.Equal(t, int64(1_700_000_000), c.IssuedAt)
	require.Equal(t, int64(1_700_003_600), c.ExpiresAt)
	require.Equal(t, jwtx.KindAccess, c.Kind)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("valid token", func(t *testing.T) {
		c := jwtx.Claims{ExpiresAt: now.Unix() + 60}
		require.NoError(t, c.ValidateExpiry(now))
	})

	t.Run("expired token", func(t *testing.T) {
		c := jwtx.Claims{ExpiresAt: now.Unix() - 60}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrExpired)
	})

	t.Run("expiring exactly now is invalid", func(t *testing.T) {
		c := jwtx.Claims{ExpiresAt: now.Unix()}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrExpired)
	})

	t.Run("zero ttl is invalid straight away", func(t *testing.T) {
		c := jwtx.NewClaims("u", "n", "e@x.io", jwtx.KindAccess, 0, now)
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrExpired)
	})
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name   string
		claims jwtx.Claims
		ok     bool
	}{
		{"complete", jwtx.Claims{Subject: "u", Kind: jwtx.KindRefresh, IssuedAt: 1, ExpiresAt: 2}, true},
		{"missing subject", jwtx.Claims{Kind: jwtx.KindAccess, IssuedAt: 1, ExpiresAt: 2}, false},
		{"unknown kind", jwtx.Claims{Subject: "u", Kind: "id", IssuedAt: 1, ExpiresAt: 2}, false},
		{"expires before issue", jwtx.Claims{Subject: "u", Kind: jwtx.KindAccess, IssuedAt: 5, ExpiresAt: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.claims.ValidateShape()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
		})
	}
}

func TestValidateKind(t *testing.T) {
	c := jwtx.Claims{Kind: jwtx.KindAccess}
	require.NoError(t, c.ValidateKind(jwtx.KindAccess))
	require.ErrorIs(t, c.ValidateKind(jwtx.KindRefresh), jwtx.ErrKindMismatch)
}

func TestRemaining(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := jwtx.Claims{ExpiresAt: now.Unix() + 90}

	require.Equal(t, 90*time.Second, c.Remaining(now))
	require.Equal(t, -10*time.Second, c.Remaining(now.Add(100*time.Second)))
}
