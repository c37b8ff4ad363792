package http

import (
	"net/http"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	"github.com/aussiebroadwan/cradle/internal/auth/domain"
	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

// DefaultBiometricReason is shown on the prompt when the caller gives none.
const DefaultBiometricReason = "Unlock Cradle"

type SessionHandler struct {
	Sessions *service.SessionManager
}

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		RegisteredAt: u.RegisteredAt,
		LastLoginAt:  u.LastLoginAt,
	}
}

func toSessionResponse(s domain.Session) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		User: toUserResponse(s.User),
		Tokens: authsdk.TokenResponse{
			AccessToken:  s.Tokens.AccessToken,
			RefreshToken: s.Tokens.RefreshToken,
			TokenType:    s.Tokens.TokenType,
			ExpiresIn:    s.Tokens.ExpiresIn,
			IssuedAt:     s.Tokens.IssuedAt,
			ExpiresAt:    s.Tokens.ExpirationDate(),
		},
	}
}

func writeSession(w http.ResponseWriter, s domain.Session) {
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(s))
}

// decode reads a JSON body, writing invalid_request on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(w, r, v); err != nil {
		slogx.FromContext(r.Context()).Info("bad request body", slogx.Err(err))
		authsdk.ErrInvalidRequest.WriteError(w)
		return false
	}
	return true
}

// HandleRegister handles POST /v1/session/register.
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.Sessions.Register(r.Context(), service.Registration{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FullName:        req.FullName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSession(w, s)
}

// HandleLogin handles POST /v1/session/login.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.Sessions.Login(r.Context(), service.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSession(w, s)
}

// HandleBiometricLogin handles POST /v1/session/biometric. The request
// stays open while the user answers the prompt; hanging up cancels it.
func (h *SessionHandler) HandleBiometricLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.BiometricRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.Passcode != "" {
		ctx = biometric.WithPasscode(ctx, req.Passcode)
	}
	reason := req.Reason
	if reason == "" {
		reason = DefaultBiometricReason
	}

	s, err := h.Sessions.LoginWithBiometric(ctx, reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSession(w, s)
}

// HandleRefresh handles POST /v1/session/refresh. The caller proves
// possession of the session by presenting its refresh token.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeServiceError(w, r, service.ErrNotAuthenticated)
		return
	}

	s, err := h.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSession(w, s)
}

// HandleLogout handles POST /v1/session/logout.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /v1/session.
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := authsdk.SessionStatusResponse{State: h.Sessions.State().String()}

	if s, ok := h.Sessions.Session(); ok {
		u := toUserResponse(s.User)
		exp := s.Tokens.ExpirationDate()
		resp.Authenticated = true
		resp.User = &u
		resp.ExpiresAt = &exp
		resp.NeedsRefresh = h.Sessions.ShouldRefresh()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
