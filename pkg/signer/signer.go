package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSalt separates keys derived for token signing from other uses of the
// same secret.
const DefaultSalt = "isso.signer"

// claims is the token body: the caller's payload plus registered claims
// (iat for age checks, jti for uniqueness).
type claims struct {
	Data json.RawMessage `json:"data"`
	jwt.RegisteredClaims
}

// Signer issues and verifies tokens. Safe for concurrent use.
type Signer struct {
	clock clock.Clock
	salt  string
	key   []byte
}

// Option configures the Signer.
type Option func(*Signer)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Signer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSalt sets the key derivation salt. Defaults to DefaultSalt.
func WithSalt(salt string) Option {
	return func(s *Signer) {
		if salt != "" {
			s.salt = salt
		}
	}
}

// New creates a Signer keyed by secret.
func New(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	s := &Signer{
		clock: clock.New(),
		salt:  DefaultSalt,
	}
	for _, opt := range opts {
		opt(s)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(s.salt))
	s.key = mac.Sum(nil)

	return s, nil
}

// Issue serializes payload with the current time into a signed token.
func (s *Signer) Issue(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(s.clock.Now()),
		},
	})

	return token.SignedString(s.key)
}

// Verify checks the token signature and age and decodes the payload into dst.
// A maxAge of zero or less disables the age check.
func (s *Signer) Verify(token string, maxAge time.Duration, dst any) error {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return ErrBadSignature
		}
		return errors.Join(ErrInvalidToken, err)
	}

	if c.IssuedAt == nil {
		return ErrInvalidToken
	}
	// iat has whole-second resolution; compare at the same precision.
	if maxAge > 0 && s.clock.Now().Truncate(jwt.TimePrecision).Sub(c.IssuedAt.Time) > maxAge {
		return ErrExpired
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(c.Data, dst); err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	return nil
}
