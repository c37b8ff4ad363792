package http

import (
	"net/http"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

type BiometricHandler struct {
	Gate *biometric.Gate
}

// HandleStatus handles GET /v1/biometric.
func (h *BiometricHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a := h.Gate.CheckAvailability(ctx)
	enabled, err := h.Gate.IsEnabledForSession(ctx)
	if err != nil {
		writeBiometricError(w, r, err)
		return
	}

	resp := authsdk.BiometricStatusResponse{
		Available: a.Available,
		Mechanism: a.Mechanism.String(),
		Enabled:   enabled,
	}
	if a.Reason != nil {
		resp.Reason = a.Reason.Error()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleEnable handles POST /v1/biometric/enable. Opting in always costs
// a successful challenge.
func (h *BiometricHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
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
		reason = "Enable biometric sign-in"
	}

	if err := h.Gate.Enable(ctx, reason); err != nil {
		writeBiometricError(w, r, err)
		return
	}
	slogx.FromContext(ctx).Info("biometric login enabled")
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles POST /v1/biometric/disable.
func (h *BiometricHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	if err := h.Gate.Disable(r.Context()); err != nil {
		writeBiometricError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("biometric login disabled")
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func writeBiometricError(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, service.BiometricError(err))
}
