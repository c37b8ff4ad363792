package jwtx

import "log/slog"

const redacted = "[REDACTED]"

// Secret is HMAC key material. It prints and logs as [REDACTED] so it can't
// end up in a log line or an error message by accident.
type Secret []byte

func (s Secret) String() string               { return redacted }
func (s Secret) GoString() string             { return redacted }
func (s Secret) LogValue() slog.Value         { return slog.StringValue(redacted) }
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Clone returns an independent copy.
func (s Secret) Clone() Secret {
	out := make(Secret, len(s))
	copy(out, s)
	return out
}
