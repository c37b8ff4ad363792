package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/internal/auth/store"
	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

// ReadyzHandler reports 503 when the database does not answer. The session
// state is informational; being signed out is not a readiness failure.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	sessions *service.SessionManager,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database: "ok",
			Session:  sessions.State().String(),
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			slogx.FromContext(r.Context()).Warn("database ping failed", slogx.Err(err))
			checks.Database = "error"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
