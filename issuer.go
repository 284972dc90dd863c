package scoped

import (
	"fmt"
	"strings"
	"time"

	"github.com/iAmLakshya/supabase-scoped-clients/token"
)

// Token is an issued impersonation token: the opaque signed string, the
// claim set it encodes, and its expiry. Tokens are immutable once issued;
// a refresh produces a new Token and never mutates an existing one.
type Token struct {
	Raw       string
	Claims    token.Claims
	ExpiresAt time.Time
}

// Issuer mints scoped tokens for one (role, custom claims, validity)
// configuration. It holds no mutable state: Issue is safe to call
// concurrently without coordination, which is the core property that lets
// every process mint tokens independently with no shared session store.
type Issuer struct {
	signer   *token.Signer
	issuerID string
	role     string
	custom   map[string]any
	validity time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer from a validated Config. An empty role
// defaults to [token.DefaultRole]; validity must be positive.
func NewIssuer(cfg Config, role string, custom map[string]any, validity time.Duration) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if validity <= 0 {
		return nil, token.ErrNonPositiveValidity
	}
	if role == "" {
		role = token.DefaultRole
	}

	signer, err := token.NewSigner([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, &ConfigurationError{Field: "supabase_jwt_secret", Reason: err.Error()}
	}

	claims := make(map[string]any, len(custom))
	for k, v := range custom {
		claims[k] = v
	}

	return &Issuer{
		signer:   signer,
		issuerID: strings.TrimSuffix(cfg.URL, "/") + "/auth/v1",
		role:     role,
		custom:   claims,
		validity: validity,
		now:      time.Now,
	}, nil
}

// Issue mints a token for the given subject.
//
// An empty subject fails with [ErrEmptySubject]: it is the caller-facing
// contract violation most likely to be a programming mistake, surfaced
// distinctly from signing failures, which are wrapped in [ErrIssueFailed].
func (i *Issuer) Issue(subject string) (Token, error) {
	if strings.TrimSpace(subject) == "" {
		return Token{}, ErrEmptySubject
	}

	claims, err := token.BuildClaims(subject, i.role, i.custom, i.now(), i.validity)
	if err != nil {
		return Token{}, err
	}

	claims[token.ClaimAudience] = token.Audience
	claims[token.ClaimIssuer] = i.issuerID

	raw, err := i.signer.Sign(claims)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrIssueFailed, err)
	}

	return Token{
		Raw:       raw,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

// Verify checks a token previously minted with the same secret and returns
// its claim set. See [token.Signer.Verify] for the error contract.
func (i *Issuer) Verify(raw string) (token.Claims, error) {
	return i.signer.Verify(raw)
}

// Role returns the role this issuer embeds in minted tokens.
func (i *Issuer) Role() string {
	return i.role
}

// Validity returns the lifetime of tokens minted by this issuer.
func (i *Issuer) Validity() time.Duration {
	return i.validity
}
