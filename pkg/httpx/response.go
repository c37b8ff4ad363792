package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// ErrBadBody wraps any failure to read a JSON request body.
var ErrBadBody = errors.New("httpx: invalid request body")

// WriteJSON writes a JSON response with the given status code. Responses
// are never cached since most of them carry tokens.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON reads one JSON object from the body into v. An empty body
// leaves v untouched. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrBadBody)
	}
	return nil
}
