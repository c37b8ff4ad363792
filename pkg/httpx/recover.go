package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/aussiebroadwan/cradle/pkg/slogx"
	"github.com/getsentry/sentry-go"
)

// RecoverMiddleware turns a handler panic into a 500 and reports it to
// Sentry. With no Sentry client configured the capture is a no-op.
func RecoverMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetExtra("stack", string(debug.Stack()))
					scope.SetTag("path", r.URL.Path)
					sentry.CaptureException(fmt.Errorf("panic in request: %v", rec))
				})
				slogx.FromContext(r.Context()).Error("panic recovered", "panic", fmt.Sprint(rec))

				WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"error":             "server_error",
					"error_description": "Internal server error.",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
