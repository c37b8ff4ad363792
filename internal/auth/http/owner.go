package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

// requireSessionOwner admits a request only when the bearer token that
// httpx.AuthnMiddleware verified belongs to the user of the current
// session. It must run after AuthnMiddleware.
func requireSessionOwner(sessions *service.SessionManager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := httpx.ClaimsFromContext(r.Context())
			if !ok {
				writeServiceError(w, r, service.ErrNotAuthenticated)
				return
			}

			u, ok := sessions.CurrentUser()
			if !ok || u.ID != claims.Subject {
				slogx.FromContext(r.Context()).Warn("bearer does not own the session",
					slog.String("subject", claims.Subject),
					slog.Bool("session", ok),
				)
				writeServiceError(w, r, service.ErrNotAuthenticated)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
