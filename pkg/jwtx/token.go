package jwtx

import (
	"fmt"
	"strings"
)

// Parts is a token split into its three segments.
type Parts struct {
	Header    string
	Payload   string
	Signature string
}

// SigningInput is the exact byte string the signature covers.
func (p Parts) SigningInput() string {
	return p.Header + "." + p.Payload
}

// String joins the segments back into the wire form.
func (p Parts) String() string {
	return p.Header + "." + p.Payload + "." + p.Signature
}

// Split breaks a token into exactly three dot-separated segments.
func Split(token string) (Parts, error) {
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Parts{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(segs))
	}
	for _, s := range segs {
		if s == "" {
			return Parts{}, fmt.Errorf("%w: empty segment", ErrMalformed)
		}
	}
	return Parts{Header: segs[0], Payload: segs[1], Signature: segs[2]}, nil
}

// Sign encodes claims under DefaultHeader and signs them. The signature is
// computed over the encoded segments as they will appear on the wire; nothing
// is re-encoded afterwards.
func Sign(codec *Codec, signer Signer, claims Claims) (string, error) {
	header, err := codec.Encode(DefaultHeader)
	if err != nil {
		return "", err
	}
	payload, err := codec.Encode(claims)
	if err != nil {
		return "", err
	}

	p := Parts{Header: header, Payload: payload}
	p.Signature, err = signer.Sign(p.SigningInput())
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// DecodeClaims reads the payload without looking at the signature. Only use
// the result for display; it says nothing about authenticity.
func DecodeClaims(codec *Codec, token string) (Claims, error) {
	p, err := Split(token)
	if err != nil {
		return Claims{}, err
	}
	var c Claims
	if err := codec.Decode(p.Payload, &c); err != nil {
		return Claims{}, err
	}
	return c, nil
}

// VerifySigned runs the structural and cryptographic checks, in order:
// three segments, a known header, then the signature. It does not look at
// expiry; the caller decides the clock.
func VerifySigned(codec *Codec, signer Signer, token string) (Claims, error) {
	p, err := Split(token)
	if err != nil {
		return Claims{}, err
	}

	var h Header
	if err := codec.Decode(p.Header, &h); err != nil {
		return Claims{}, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}
	if h.Alg != signer.Alg() {
		return Claims{}, ErrAlgMismatch
	}

	if !signer.Verify(p.SigningInput(), p.Signature) {
		return Claims{}, ErrInvalidSig
	}

	var c Claims
	if err := codec.Decode(p.Payload, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: payload: %w", ErrMalformed, err)
	}
	if err := c.ValidateShape(); err != nil {
		return Claims{}, err
	}
	return c, nil
}
