package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/cradle/pkg/httpx"
)

// Error codes. Apart from the request-level ones, they match the session
// service's error taxonomy one to one.
const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeServerError            = "server_error"
	ErrorCodeRateLimited            = "rate_limit_exceeded"
	ErrorCodeInvalidCredentials     = "invalid_credentials"
	ErrorCodeUserAlreadyExists      = "user_already_exists"
	ErrorCodeUserNotFound           = "user_not_found"
	ErrorCodeRegistrationFailed     = "registration_failed"
	ErrorCodeTokenInvalid           = "token_invalid"
	ErrorCodeTokenExpired           = "token_expired"
	ErrorCodeBiometricUnavailable   = "biometric_unavailable"
	ErrorCodeBiometricNotEnrolled   = "biometric_not_enrolled"
	ErrorCodeBiometricLockout       = "biometric_lockout"
	ErrorCodeBiometricUserCancelled = "biometric_user_cancelled"
	ErrorCodeBiometricFailed        = "biometric_failed"
	ErrorCodeStorageError           = "storage_error"
	ErrorCodeDecodingError          = "decoding_error"
	ErrorCodeEncodingError          = "encoding_error"
	ErrorCodeNotAuthenticated       = "not_authenticated"
)

// APIError is the error body every endpoint returns. The server writes it
// with WriteError and the client hands it back as an error.
type APIError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any APIError with the same code, so callers can write
// errors.Is(err, authsdk.ErrInvalidCredentials).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "The request is malformed.",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "The access token is missing, invalid or expired.",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "Internal server error.",
	}

	ErrInvalidCredentials = &APIError{StatusCode: http.StatusUnauthorized, Code: ErrorCodeInvalidCredentials}
	ErrUserAlreadyExists  = &APIError{StatusCode: http.StatusConflict, Code: ErrorCodeUserAlreadyExists}
	ErrUserNotFound       = &APIError{StatusCode: http.StatusNotFound, Code: ErrorCodeUserNotFound}
	ErrNotAuthenticated   = &APIError{StatusCode: http.StatusUnauthorized, Code: ErrorCodeNotAuthenticated}
	ErrTokenInvalid       = &APIError{StatusCode: http.StatusUnauthorized, Code: ErrorCodeTokenInvalid}
	ErrTokenExpired       = &APIError{StatusCode: http.StatusUnauthorized, Code: ErrorCodeTokenExpired}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var e APIError
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		e.StatusCode = resp.StatusCode
		return &e
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
