package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/pkg/authsdk"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
	"github.com/getsentry/sentry-go"
)

var statusByCode = map[string]int{
	authsdk.ErrorCodeInvalidCredentials:     http.StatusUnauthorized,
	authsdk.ErrorCodeUserAlreadyExists:      http.StatusConflict,
	authsdk.ErrorCodeUserNotFound:           http.StatusNotFound,
	authsdk.ErrorCodeRegistrationFailed:     http.StatusBadRequest,
	authsdk.ErrorCodeTokenInvalid:           http.StatusUnauthorized,
	authsdk.ErrorCodeTokenExpired:           http.StatusUnauthorized,
	authsdk.ErrorCodeBiometricUnavailable:   http.StatusPreconditionFailed,
	authsdk.ErrorCodeBiometricNotEnrolled:   http.StatusPreconditionFailed,
	authsdk.ErrorCodeBiometricLockout:       http.StatusLocked,
	authsdk.ErrorCodeBiometricUserCancelled: http.StatusConflict,
	authsdk.ErrorCodeBiometricFailed:        http.StatusUnauthorized,
	authsdk.ErrorCodeStorageError:           http.StatusServiceUnavailable,
	authsdk.ErrorCodeDecodingError:          http.StatusInternalServerError,
	authsdk.ErrorCodeEncodingError:          http.StatusInternalServerError,
	authsdk.ErrorCodeNotAuthenticated:       http.StatusUnauthorized,
}

// writeServiceError maps a service error onto its API error. Anything
// outside the taxonomy is logged and reported to Sentry as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Info("request abandoned", slogx.Err(err))
		authsdk.NewAPIError(http.StatusServiceUnavailable, authsdk.ErrorCodeServerError, "The request was cancelled.").WriteError(w)
		return
	}

	code := service.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Error("unexpected service error", slogx.Err(err))
		captureError(r, err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if status >= http.StatusInternalServerError {
		log.Error("session operation failed", slog.String("code", code), slogx.Err(err))
		captureError(r, err)
	} else {
		log.Info("session operation refused", slog.String("code", code), slogx.Err(err))
	}
	authsdk.NewAPIError(status, code, service.Describe(err)).WriteError(w)
}

func captureError(r *http.Request, err error) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("path", r.URL.Path)
		hub.CaptureException(err)
	})
}
