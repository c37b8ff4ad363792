package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

// AuthnMiddleware requires a bearer access token that v accepts, and puts
// its claims in the request context.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				desc := "token verification failed"
				if errors.Is(err, jwtx.ErrExpired) {
					desc = "token expired"
				}
				log.Warn("bearer token rejected", slogx.TokenAttr("token", raw), slogx.Err(err))
				writeBearerError(w, desc)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
