package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claim names owned by the issuer. Custom claims may never shadow these.
const (
	ClaimSubject   = "sub"
	ClaimRole      = "role"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
	ClaimAudience  = "aud"
	ClaimIssuer    = "iss"
)

const (
	// DefaultRole is the Supabase role used when none is specified.
	DefaultRole = "authenticated"
	// Audience is the audience value the Supabase policy engine expects.
	Audience = "authenticated"
)

var (
	// ErrEmptySubject is returned when the subject identifier is empty.
	ErrEmptySubject = errors.New("subject cannot be empty")
	// ErrNonPositiveValidity is returned when the validity duration is zero or negative.
	ErrNonPositiveValidity = errors.New("validity duration must be positive")
	// ErrReservedClaim is returned when a custom claim key collides with a
	// claim owned by the issuer. Silently overwriting sub or exp would let a
	// caller widen its own authority, so collisions are rejected outright.
	ErrReservedClaim = errors.New("custom claim shadows a reserved claim")
)

var reservedClaims = map[string]struct{}{
	ClaimSubject:   {},
	ClaimRole:      {},
	ClaimIssuedAt:  {},
	ClaimExpiresAt: {},
	ClaimAudience:  {},
	ClaimIssuer:    {},
}

// Claims is a flat claim set: mandatory claims plus caller-supplied custom
// claims merged at the top level, as the Supabase verifier expects.
type Claims map[string]any

// BuildClaims assembles the canonical claim set for a scoped token.
//
// It is pure and deterministic: the only time source is the now parameter
// and the returned map is freshly allocated on every call. The expiry is
// exactly iat + validity in whole seconds.
func BuildClaims(subject, role string, custom map[string]any, now time.Time, validity time.Duration) (Claims, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ErrEmptySubject
	}
	if validity <= 0 {
		return nil, ErrNonPositiveValidity
	}
	if role == "" {
		role = DefaultRole
	}

	claims := make(Claims, len(custom)+4)
	for key, value := range custom {
		if _, reserved := reservedClaims[key]; reserved {
			return nil, fmt.Errorf("%w: %q", ErrReservedClaim, key)
		}
		claims[key] = value
	}

	iat := now.Unix()
	claims[ClaimSubject] = subject
	claims[ClaimRole] = role
	claims[ClaimIssuedAt] = iat
	claims[ClaimExpiresAt] = iat + int64(validity/time.Second)

	return claims, nil
}

// Subject returns the sub claim, or "" if absent.
func (c Claims) Subject() string {
	s, _ := c[ClaimSubject].(string)
	return s
}

// Role returns the role claim, or "" if absent.
func (c Claims) Role() string {
	s, _ := c[ClaimRole].(string)
	return s
}

// IssuedAt returns the iat claim as a time, or the zero time if absent.
func (c Claims) IssuedAt() time.Time {
	return c.unixClaim(ClaimIssuedAt)
}

// ExpiresAt returns the exp claim as a time, or the zero time if absent.
func (c Claims) ExpiresAt() time.Time {
	return c.unixClaim(ClaimExpiresAt)
}

// unixClaim tolerates the numeric representations a JSON round-trip can
// produce for epoch-second claims.
func (c Claims) unixClaim(name string) time.Time {
	switch v := c[name].(type) {
	case int64:
		return time.Unix(v, 0)
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}
		}
		return time.Unix(n, 0)
	default:
		return time.Time{}
	}
}
