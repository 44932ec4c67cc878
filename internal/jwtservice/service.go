// Package jwtservice signs and verifies the three claim shapes Vaulth
// carries through its OAuth2 flow (state, code, access) as ES384 JWTs.
//
// Unlike the teacher's doc-stub pkg/jwt, the keypair is parsed once at
// construction time: a malformed key is a configuration-fatal error
// raised at startup, not on the first request that happens to sign a
// token.
package jwtservice

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedKey is returned by New when a PEM block cannot be parsed
// into an ECDSA keypair suitable for ES384.
var ErrMalformedKey = errors.New("jwtservice: malformed ES384 key")

// maxTokenLength bounds the work Decode does on untrusted input: an
// ES384 JWT over any of this package's claim shapes is well under 1 KiB,
// so 4 KiB leaves generous headroom without letting an oversized token
// drive unbounded base64/JSON parsing.
const maxTokenLength = 4096

// ErrTokenTooLarge is returned by Decode when tokenString exceeds
// maxTokenLength, before any parsing is attempted.
var ErrTokenTooLarge = errors.New("jwtservice: token too large")

// Service signs and verifies JWTs with a fixed ES384 keypair.
type Service struct {
	private  *ecdsa.PrivateKey
	public   *ecdsa.PublicKey
	duration time.Duration
}

// New parses privatePEM/publicPEM (PKCS#8 private key, PKIX public key,
// both PEM-encoded) and returns a Service that signs tokens with the
// given default lifetime. Returns ErrMalformedKey if either key cannot
// be parsed or is not an ECDSA P-384 key.
func New(privatePEM, publicPEM []byte, duration time.Duration) (*Service, error) {
	priv, err := parsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	pub, err := parsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	return &Service{private: priv, public: pub, duration: duration}, nil
}

func parsePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrMalformedKey)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok || ecKey.Curve.Params().BitSize != 384 {
		return nil, fmt.Errorf("%w: not a P-384 private key", ErrMalformedKey)
	}
	return ecKey, nil
}

func parsePublicKey(pemBytes []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrMalformedKey)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok || ecKey.Curve.Params().BitSize != 384 {
		return nil, fmt.Errorf("%w: not a P-384 public key", ErrMalformedKey)
	}
	return ecKey, nil
}

// PublicKeyPEM re-encodes the service's public key as PKIX PEM, for the
// GET /key endpoint.
func (s *Service) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(s.public)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// envelope carries exp/iat as the bare Unix-second integers jwt.NumericDate
// already produces, flattened alongside the caller's claim data — matching
// the wire shape of the original implementation's chrono_jwt serde module.
type envelope[T any] struct {
	Exp  jwt.NumericDate `json:"exp"`
	Iat  jwt.NumericDate `json:"iat"`
	Data T               `json:"-"`
}

// MarshalJSON flattens Data's fields alongside exp/iat, mirroring
// #[serde(flatten)].
func (e envelope[T]) MarshalJSON() ([]byte, error) {
	dataBytes, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(dataBytes, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	exp, err := json.Marshal(e.Exp)
	if err != nil {
		return nil, err
	}
	iat, err := json.Marshal(e.Iat)
	if err != nil {
		return nil, err
	}
	fields["exp"] = exp
	fields["iat"] = iat
	return json.Marshal(fields)
}

// UnmarshalJSON splits exp/iat back out before decoding the remainder
// into Data.
func (e *envelope[T]) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if raw, ok := fields["exp"]; ok {
		if err := json.Unmarshal(raw, &e.Exp); err != nil {
			return err
		}
	}
	if raw, ok := fields["iat"]; ok {
		if err := json.Unmarshal(raw, &e.Iat); err != nil {
			return err
		}
	}
	delete(fields, "exp")
	delete(fields, "iat")
	rest, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(rest, &e.Data)
}

func (e envelope[T]) GetExpirationTime() (*jwt.NumericDate, error) { return &e.Exp, nil }
func (e envelope[T]) GetIssuedAt() (*jwt.NumericDate, error)       { return &e.Iat, nil }
func (envelope[T]) GetNotBefore() (*jwt.NumericDate, error)        { return nil, nil }
func (envelope[T]) GetIssuer() (string, error)                     { return "", nil }
func (envelope[T]) GetSubject() (string, error)                    { return "", nil }
func (envelope[T]) GetAudience() (jwt.ClaimStrings, error)         { return nil, nil }

// Encode signs data as an ES384 JWT, valid from now for the Service's
// configured duration.
func Encode[T any](s *Service, data T) (string, error) {
	now := time.Now()
	claims := envelope[T]{
		Exp:  *jwt.NewNumericDate(now.Add(s.duration)),
		Iat:  *jwt.NewNumericDate(now),
		Data: data,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES384, claims)
	return token.SignedString(s.private)
}

// Decode verifies signature and expiry and returns the embedded claim
// data. Any failure — bad signature, expired token, malformed payload —
// returns a zero T and a non-nil error; callers must not distinguish
// failure reasons beyond that (per the broker's "invalid code"/"invalid
// token" responses, which never leak why a token was rejected).
func Decode[T any](s *Service, tokenString string) (T, error) {
	var zero T
	if len(tokenString) > maxTokenLength {
		return zero, ErrTokenTooLarge
	}

	var claims envelope[T]
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("jwtservice: unexpected signing method %v", t.Header["alg"])
		}
		return s.public, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES384.Alg()}))

	if err != nil {
		return zero, fmt.Errorf("jwtservice: decode: %w", err)
	}
	if !token.Valid {
		return zero, fmt.Errorf("jwtservice: token not valid")
	}
	return claims.Data, nil
}
