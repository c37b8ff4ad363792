package jwtx

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Codec turns header and payload records into base64url segments and back.
//
// Encoding is JSON with padding stripped. Decoding re-pads to a multiple of
// four before decoding, and refuses fields the target record doesn't know
// about so a payload of the wrong shape can't slip through half-filled.
type Codec struct {
	parser *jwt.Parser
}

// NewCodec returns a Codec that accepts both padded and unpadded input.
// Decoding is strict: unused trailing bits must be zero, so every byte
// string has exactly one accepted encoding.
func NewCodec() *Codec {
	return &Codec{parser: jwt.NewParser(jwt.WithPaddingAllowed(), jwt.WithStrictDecoding())}
}

// Encode serialises v and returns its unpadded base64url form.
func (c *Codec) Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode into v, which must be a pointer.
func (c *Codec) Decode(segment string, v any) error {
	raw, err := c.DecodeBytes(segment)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	// Anything after the first JSON value is a shape mismatch too.
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrDecode)
	}
	return nil
}

// DecodeBytes base64url-decodes a segment, re-padding it first.
func (c *Codec) DecodeBytes(segment string) ([]byte, error) {
	raw, err := c.parser.DecodeSegment(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return raw, nil
}

// EncodeBytes base64url-encodes raw bytes without padding.
func (c *Codec) EncodeBytes(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
