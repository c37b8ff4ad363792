package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
)

// TokenService issues and checks our self-signed token pairs. It is pure:
// no I/O, no shared mutable state beyond the read-only signer.
type TokenService struct {
	Codec      *jwtx.Codec
	Signer     jwtx.Signer
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewTokenService uses the default lifetimes: one hour for access tokens
// and thirty days for refresh tokens.
func NewTokenService(signer jwtx.Signer) *TokenService {
	return &TokenService{
		Codec:      jwtx.NewCodec(),
		Signer:     signer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
		Now:        time.Now,
	}
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *TokenService) issue(kind jwtx.Kind, userID, username, email string, ttl time.Duration, now time.Time) (string, error) {
	if ttl < 0 {
		return "", fmt.Errorf("%w: negative ttl", ErrEncoding)
	}
	claims := jwtx.NewClaims(userID, username, email, kind, ttl, now)
	token, err := jwtx.Sign(s.Codec, s.Signer, claims)
	if err != nil {
		return "", fmt.Errorf("%w: sign %s token: %w", ErrEncoding, kind, err)
	}
	return token, nil
}

// IssueAccessToken signs an access token valid for ttl. A zero ttl gives a
// token that is already expired.
func (s *TokenService) IssueAccessToken(userID, username, email string, ttl time.Duration) (string, error) {
	return s.issue(jwtx.KindAccess, userID, username, email, ttl, s.now())
}

// IssueRefreshToken signs a refresh token valid for ttl.
func (s *TokenService) IssueRefreshToken(userID, username, email string, ttl time.Duration) (string, error) {
	return s.issue(jwtx.KindRefresh, userID, username, email, ttl, s.now())
}

// IssueTokenPair issues both tokens at the same instant with the
// configured lifetimes.
func (s *TokenService) IssueTokenPair(userID, username, email string) (domain.TokenPair, error) {
	now := time.Unix(s.now().Unix(), 0)

	access, err := s.issue(jwtx.KindAccess, userID, username, email, s.AccessTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.issue(jwtx.KindRefresh, userID, username, email, s.RefreshTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    int64(s.AccessTTL / time.Second),
		IssuedAt:     now,
	}, nil
}

// Validate runs the three checks in order: three segments, a good
// signature, then exp strictly after now. Every failure matches
// ErrTokenInvalid; an expired token matches ErrTokenExpired as well.
func (s *TokenService) Validate(token string) (jwtx.Claims, error) {
	claims, err := jwtx.VerifySigned(s.Codec, s.Signer, token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if err := claims.ValidateExpiry(s.now()); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenExpired)
	}
	return claims, nil
}

// ValidateKind is Validate plus a check on the token kind.
func (s *TokenService) ValidateKind(token string, kind jwtx.Kind) (jwtx.Claims, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if err := claims.ValidateKind(kind); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}

// Verify implements jwtx.Verifier for bearer authentication: only valid
// access tokens pass. Expiry is reported as jwtx.ErrExpired so the HTTP
// layer can say so.
func (s *TokenService) Verify(token string) (jwtx.Claims, error) {
	claims, err := s.ValidateKind(token, jwtx.KindAccess)
	if errors.Is(err, ErrTokenExpired) {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", err, jwtx.ErrExpired)
	}
	return claims, err
}

// Decode reads the claims without checking the signature. Never use the
// result to authorize anything.
func (s *TokenService) Decode(token string) (jwtx.Claims, error) {
	claims, err := jwtx.DecodeClaims(s.Codec, token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrDecoding, err)
	}
	return claims, nil
}

// IsExpired is a display helper. It decodes without verifying, and an
// undecodable token counts as expired.
func (s *TokenService) IsExpired(token string) bool {
	claims, err := s.Decode(token)
	if err != nil {
		return true
	}
	return claims.ValidateExpiry(s.now()) != nil
}

// RemainingLifetime is negative once the token has expired.
func (s *TokenService) RemainingLifetime(token string) (time.Duration, error) {
	claims, err := s.Decode(token)
	if err != nil {
		return 0, err
	}
	return claims.Remaining(s.now()), nil
}

// pairFromAccess rebuilds the pair metadata from a verified access token.
func pairFromAccess(access, refresh string, claims jwtx.Claims) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    claims.ExpiresAt - claims.IssuedAt,
		IssuedAt:     claims.IssuedTime(),
	}
}
