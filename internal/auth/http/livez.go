package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
)

// LivezHandler always answers 200 while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}
