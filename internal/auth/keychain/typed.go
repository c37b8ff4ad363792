package keychain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/aussiebroadwan/cradle/internal/auth/domain"
)

// StringEntry builds an Entry holding s as UTF-8.
func StringEntry(purpose domain.Purpose, s string) Entry {
	return Entry{Purpose: purpose, Value: []byte(s)}
}

// JSONEntry builds an Entry holding v as JSON.
func JSONEntry(purpose domain.Purpose, v any) (Entry, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %s: %w", ErrEncoding, purpose, err)
	}
	return Entry{Purpose: purpose, Value: raw}, nil
}

// BoolEntry builds an Entry holding "true" or "false".
func BoolEntry(purpose domain.Purpose, b bool) Entry {
	return Entry{Purpose: purpose, Value: []byte(strconv.FormatBool(b))}
}

func SaveString(ctx context.Context, v Vault, purpose domain.Purpose, s string) error {
	return v.Save(ctx, purpose, []byte(s))
}

// LoadString fails with ErrDecoding when the stored bytes are not UTF-8.
func LoadString(ctx context.Context, v Vault, purpose domain.Purpose) (string, error) {
	raw, err := v.Load(ctx, purpose)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %s: not utf-8", ErrDecoding, purpose)
	}
	return string(raw), nil
}

func SaveJSON[T any](ctx context.Context, v Vault, purpose domain.Purpose, value T) error {
	e, err := JSONEntry(purpose, value)
	if err != nil {
		return err
	}
	return v.Save(ctx, purpose, e.Value)
}

func LoadJSON[T any](ctx context.Context, v Vault, purpose domain.Purpose) (T, error) {
	var out T
	raw, err := v.Load(ctx, purpose)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrDecoding, purpose, err)
	}
	return out, nil
}

func SaveBool(ctx context.Context, v Vault, purpose domain.Purpose, b bool) error {
	e := BoolEntry(purpose, b)
	return v.Save(ctx, purpose, e.Value)
}

// LoadBool accepts only "true" and "false".
func LoadBool(ctx context.Context, v Vault, purpose domain.Purpose) (bool, error) {
	raw, err := v.Load(ctx, purpose)
	if err != nil {
		return false, err
	}
	switch string(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s: not a bool", ErrDecoding, purpose)
}
