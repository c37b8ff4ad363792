package http_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	httpapi "github.com/aussiebroadwan/cradle/internal/auth/http"
	"github.com/aussiebroadwan/cradle/internal/auth/keychain"
	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/cryptox"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = jwtx.Secret("0123456789abcdef0123456789abcdef")
	fastParams = cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}
)

// device is one simulated install: a database and the keys that open it.
// Each call to serve is a fresh process over the same storage.
type device struct {
	db       *sqlite.Store
	sealer   *cryptox.Sealer
	signer   *jwtx.HS256Signer
	passcode string
}

func newDevice(t *testing.T, withPasscode bool) *device {
	t.Helper()
	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	sealer, err := cryptox.NewSealer([]byte("keychain-key"))
	require.NoError(t, err)
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	d := &device{db: db, sealer: sealer, signer: signer}
	if withPasscode {
		key, err := biometric.NewPasscodeSecret("cradle", "test")
		require.NoError(t, err)
		d.passcode = key.Secret()
	}
	return d
}

func (d *device) serve(t *testing.T) *authsdk.Client {
	t.Helper()

	vault := keychain.New(d.db, d.sealer)
	var auth biometric.Authenticator = biometric.Unavailable{}
	if d.passcode != "" {
		auth = biometric.NewPasscodeAuthenticator(d.passcode)
	}
	gate := biometric.NewGate(auth, vault)
	tokens := service.NewTokenService(d.signer)

	sessions := service.NewSessionManager(service.SessionConfig{
		Directory: &service.StoreDirectory{Store: d.db},
		Tokens:    tokens,
		Vault:     vault,
		Gate:      gate,
		Hasher:    cryptox.NewPasswordHasherWithParams([]byte("pepper"), fastParams),
	})
	_, err := sessions.RestoreSession(context.Background())
	require.NoError(t, err)

	logger := slogx.NewLogger(slogx.Config{Service: "test", Output: io.Discard})
	router := httpapi.NewRouter(tokens, "test", d.db, logger)
	router.Sessions = sessions
	router.Gate = gate
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return authsdk.NewClient(srv.URL)
}

func (d *device) code(t *testing.T) string {
	t.Helper()
	code, err := totp.GenerateCode(d.passcode, time.Now())
	require.NoError(t, err)
	return code
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	require.NotEmpty(t, apiErr.Description)
}

var alice = authsdk.RegisterRequest{
	Username:        "alice",
	Email:           "alice@example.com",
	Password:        "secret1",
	ConfirmPassword: "secret1",
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newDevice(t, false).serve(t)

	_, err := c.Session(ctx, "")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	s, err := c.Register(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "alice", s.User.Username)
	require.Equal(t, "Bearer", s.Tokens.TokenType)
	require.EqualValues(t, 3600, s.Tokens.ExpiresIn)
	require.True(t, s.Tokens.IssuedAt.Add(time.Hour).Equal(s.Tokens.ExpiresAt))

	status, err := c.Session(ctx, s.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "authenticated", status.State)
	require.True(t, status.Authenticated)
	require.Equal(t, s.User.ID, status.User.ID)
	require.False(t, status.NeedsRefresh)

	info, err := c.UserInfo(ctx, s.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, s.User.ID, info.UserID)
	require.Equal(t, "alice@example.com", info.Email)

	_, err = c.UserInfo(ctx, s.Tokens.RefreshToken)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	_, err = c.UserInfo(ctx, "")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	refreshed, err := c.Refresh(ctx, s.Tokens.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, s.User.ID, refreshed.User.ID)

	_, err = c.Refresh(ctx, "")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeNotAuthenticated)
	_, err = c.Refresh(ctx, s.Tokens.AccessToken)
	require.ErrorIs(t, err, authsdk.ErrTokenInvalid)

	access := refreshed.Tokens.AccessToken
	require.NoError(t, c.Logout(ctx, access))

	// The token still verifies, but there is no session left for it to own.
	err = c.Logout(ctx, access)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeNotAuthenticated)
	_, err = c.Session(ctx, access)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeNotAuthenticated)

	_, err = c.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
	_, err = c.Login(ctx, "nobody", "secret1")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	s, err = c.Login(ctx, "ALICE", "secret1")
	require.NoError(t, err)
	require.Equal(t, "alice", s.User.Username)
	require.NotNil(t, s.User.LastLoginAt)
}

func TestSessionRoutesNeedTheSessionOwner(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t, true)
	s, err := d.serve(t).Register(ctx, alice)
	require.NoError(t, err)

	// Restart: the stored session is restored with nobody holding a token.
	c := d.serve(t)

	_, err = c.Refresh(ctx, "")
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeNotAuthenticated)
	resp, err := http.Post(c.BaseURL+"/v1/session/refresh", "application/json", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Another user's token is valid here, but it does not own this session.
	bob := authsdk.RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
	other, err := newDevice(t, false).serve(t).Register(ctx, bob)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{name: "anonymous", token: "", code: authsdk.ErrorCodeInvalidToken},
		{name: "garbage", token: "not-a-token", code: authsdk.ErrorCodeInvalidToken},
		{name: "refresh token", token: s.Tokens.RefreshToken, code: authsdk.ErrorCodeInvalidToken},
		{name: "other user", token: other.Tokens.AccessToken, code: authsdk.ErrorCodeNotAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Session(ctx, tt.token)
			requireAPIError(t, err, http.StatusUnauthorized, tt.code)
			err = c.EnableBiometric(ctx, tt.token, authsdk.BiometricRequest{Passcode: d.code(t)})
			requireAPIError(t, err, http.StatusUnauthorized, tt.code)
			err = c.DisableBiometric(ctx, tt.token)
			requireAPIError(t, err, http.StatusUnauthorized, tt.code)
			err = c.Logout(ctx, tt.token)
			requireAPIError(t, err, http.StatusUnauthorized, tt.code)
		})
	}

	// None of that disturbed the session.
	status, err := c.Session(ctx, s.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "authenticated", status.State)
	require.Equal(t, s.User.ID, status.User.ID)
}

func TestRegisterErrors(t *testing.T) {
	ctx := context.Background()
	c := newDevice(t, false).serve(t)

	mismatch := alice
	mismatch.ConfirmPassword = "secret2"
	_, err := c.Register(ctx, mismatch)
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeRegistrationFailed)

	_, err = c.Register(ctx, alice)
	require.NoError(t, err)

	dup := alice
	dup.Username = "alice2"
	_, err = c.Register(ctx, dup)
	requireAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeUserAlreadyExists)
}

func TestMalformedBodies(t *testing.T) {
	c := newDevice(t, false).serve(t)

	tests := map[string]string{
		"truncated":     `{"username":`,
		"unknown field": `{"username":"a","password":"b","admin":true}`,
		"trailing data": `{"refresh_token":""} {}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(c.BaseURL+"/v1/session/refresh", "application/json", bytes.NewBufferString(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Contains(t, string(raw), authsdk.ErrorCodeInvalidRequest)
		})
	}
}

func TestBiometricOverPasscode(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t, true)
	c := d.serve(t)

	st, err := c.BiometricStatus(ctx)
	require.NoError(t, err)
	require.True(t, st.Available)
	require.Equal(t, "passcode", st.Mechanism)
	require.False(t, st.Enabled)

	_, err = c.LoginWithBiometric(ctx, authsdk.BiometricRequest{Passcode: d.code(t)})
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeBiometricFailed)

	s, err := c.Register(ctx, alice)
	require.NoError(t, err)

	err = c.EnableBiometric(ctx, s.Tokens.AccessToken, authsdk.BiometricRequest{})
	requireAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeBiometricUserCancelled)
	require.NoError(t, c.EnableBiometric(ctx, s.Tokens.AccessToken, authsdk.BiometricRequest{Passcode: d.code(t)}))

	st, err = c.BiometricStatus(ctx)
	require.NoError(t, err)
	require.True(t, st.Enabled)

	// Restart over the same storage. Biometric unlock resumes the stored
	// session once presence is proven.
	c = d.serve(t)
	status, err := c.Session(ctx, s.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "authenticated", status.State)

	_, err = c.LoginWithBiometric(ctx, authsdk.BiometricRequest{Reason: "Unlock"})
	requireAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeBiometricUserCancelled)

	wrong := "000000"
	if d.code(t) == wrong {
		wrong = "999999"
	}
	_, err = c.LoginWithBiometric(ctx, authsdk.BiometricRequest{Passcode: wrong})
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeBiometricFailed)

	got, err := c.LoginWithBiometric(ctx, authsdk.BiometricRequest{Passcode: d.code(t)})
	require.NoError(t, err)
	require.Equal(t, s.User.ID, got.User.ID)

	require.NoError(t, c.DisableBiometric(ctx, got.Tokens.AccessToken))
	st, err = c.BiometricStatus(ctx)
	require.NoError(t, err)
	require.False(t, st.Enabled)
}

func TestBiometricUnavailable(t *testing.T) {
	ctx := context.Background()
	c := newDevice(t, false).serve(t)

	st, err := c.BiometricStatus(ctx)
	require.NoError(t, err)
	require.False(t, st.Available)
	require.Equal(t, "none", st.Mechanism)
	require.NotEmpty(t, st.Reason)

	s, err := c.Register(ctx, alice)
	require.NoError(t, err)
	err = c.EnableBiometric(ctx, s.Tokens.AccessToken, authsdk.BiometricRequest{})
	requireAPIError(t, err, http.StatusPreconditionFailed, authsdk.ErrorCodeBiometricUnavailable)
}

func TestStrictRateLimitOnLogin(t *testing.T) {
	ctx := context.Background()
	c := newDevice(t, false).serve(t)

	var lastErr error
	for range httpx.StrictLimit.Burst + 1 {
		_, lastErr = c.Login(ctx, "alice", "secret1")
	}
	requireAPIError(t, lastErr, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)

	// Other endpoints have their own buckets.
	_, err := c.BiometricStatus(ctx)
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	d := newDevice(t, false)
	c := d.serve(t)

	live, err := c.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "logged_out", ready.Checks.Session)

	require.NoError(t, d.db.Close())
	_, err = c.GetReadiness(ctx)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestResponsesAreNotCached(t *testing.T) {
	c := newDevice(t, false).serve(t)

	resp, err := http.Post(c.BaseURL+"/v1/session/register", "application/json",
		strings.NewReader(`{"username":"bob","email":"bob@example.com","password":"secret1","confirm_password":"secret1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.NotEmpty(t, resp.Header.Get(slogx.RequestIDHeader))
}
