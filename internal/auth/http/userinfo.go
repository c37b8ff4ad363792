package http

import (
	"net/http"

	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
)

// UserInfoHandler answers from the verified access token alone; it never
// consults the session, so any holder of a valid token can call it.
type UserInfoHandler struct{}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiryTime().UTC(),
	})
}
