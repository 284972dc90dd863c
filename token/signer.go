package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the minimum accepted signing secret length in bytes.
// HS256 keys shorter than the hash output undermine the signing guarantee.
const MinSecretLen = 32

var (
	// ErrSecretTooShort is returned by [NewSigner] for missing or weak secrets.
	ErrSecretTooShort = errors.New("signing secret must be at least 32 bytes")
	// ErrTokenExpired is returned by Verify at or after the token's expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature is returned by Verify when the token fails
	// signature or structural checks. Treat as a hard failure.
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Signer signs and verifies compact HS256 tokens with a shared secret.
//
// Signer instances are immutable after construction and safe for concurrent
// use. Signing is side-effect-free; verification reads the wall clock.
type Signer struct {
	secret   []byte
	timeFunc func() time.Time
}

// NewSigner creates a Signer for the given shared secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Signer{secret: key}, nil
}

// Sign encodes the claim set into a compact three-segment token. The
// signature covers the entire claim set including expiry, so tampering with
// any claim invalidates the token.
func (s *Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(s.secret)
}

// Verify parses and validates a signed token, returning its claim set.
//
// It fails with [ErrTokenExpired] when the current time is at or after the
// token's exp claim, and with [ErrInvalidSignature] for any signature or
// structural mismatch. The two are distinct so callers can refresh on expiry
// but hard-fail on possible tampering.
func (s *Signer) Verify(tokenStr string) (Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.timeFunc != nil {
		options = append(options, jwt.WithTimeFunc(s.timeFunc))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidSignature
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	return Claims(mapClaims), nil
}
