package slogx

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/cradle/pkg/cryptox"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default if there is none.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// TokenAttr logs a token by fingerprint. Raw tokens never go in a log line.
func TokenAttr(key, token string) slog.Attr {
	if token == "" {
		return slog.String(key, "")
	}
	return slog.String(key, "sha256:"+cryptox.FingerprintToken(token)[:12])
}

// Err is the attribute every package logs errors under.
func Err(err error) slog.Attr {
	return slog.Any("err", err)
}
