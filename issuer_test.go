package scoped

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iAmLakshya/supabase-scoped-clients/token"
)

func testConfig() Config {
	return Config{
		URL:       "https://proj.supabase.co",
		Key:       "anon-key",
		JWTSecret: strings.Repeat("s", token.MinSecretLen),
	}
}

func TestIssuerIssueClaims(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)

	issuer, err := NewIssuer(testConfig(), "", map[string]any{"tenant_id": "t1"}, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	issuer.now = func() time.Time { return t0 }

	tok, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if got := tok.Claims.Subject(); got != "u1" {
		t.Fatalf("sub = %q", got)
	}
	if got := tok.Claims.Role(); got != "authenticated" {
		t.Fatalf("role = %q, expected default", got)
	}
	if got := tok.Claims[token.ClaimAudience]; got != "authenticated" {
		t.Fatalf("aud = %v", got)
	}
	if got := tok.Claims[token.ClaimIssuer]; got != "https://proj.supabase.co/auth/v1" {
		t.Fatalf("iss = %v", got)
	}
	if got := tok.Claims["tenant_id"]; got != "t1" {
		t.Fatalf("tenant_id = %v", got)
	}
	if !tok.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("expiry = %v, want %v", tok.ExpiresAt, t0.Add(time.Hour))
	}
	if tok.Raw == "" {
		t.Fatal("empty signed token")
	}
}

func TestIssuerTrimsTrailingSlashInIssuer(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "https://proj.supabase.co/"

	issuer, err := NewIssuer(cfg, "", nil, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	tok, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if got := tok.Claims[token.ClaimIssuer]; got != "https://proj.supabase.co/auth/v1" {
		t.Fatalf("iss = %v", got)
	}
}

func TestIssuerEmptySubject(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), "", nil, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	for _, subject := range []string{"", "   "} {
		if _, err := issuer.Issue(subject); !errors.Is(err, ErrEmptySubject) {
			t.Fatalf("subject %q: expected ErrEmptySubject, got %v", subject, err)
		}
	}
}

func TestIssuerRejectsReservedCustomClaims(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), "", map[string]any{"exp": 0}, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	if _, err := issuer.Issue("u1"); !errors.Is(err, token.ErrReservedClaim) {
		t.Fatalf("expected ErrReservedClaim, got %v", err)
	}
}

func TestNewIssuerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "bad url scheme",
			mutate: func(c *Config) { c.URL = "ftp://proj.supabase.co" },
		},
		{
			name:   "empty key",
			mutate: func(c *Config) { c.Key = "" },
		},
		{
			name:   "short secret",
			mutate: func(c *Config) { c.JWTSecret = "short" },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)

			_, err := NewIssuer(cfg, "", nil, time.Hour)
			if !IsConfigurationError(err) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestNewIssuerNonPositiveValidity(t *testing.T) {
	if _, err := NewIssuer(testConfig(), "", nil, 0); !errors.Is(err, token.ErrNonPositiveValidity) {
		t.Fatalf("expected ErrNonPositiveValidity, got %v", err)
	}
}

func TestIssuerVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), "service_role", nil, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	tok, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := issuer.Verify(tok.Raw)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got := claims.Subject(); got != "u1" {
		t.Fatalf("sub = %q", got)
	}
	if got := claims.Role(); got != "service_role" {
		t.Fatalf("role = %q", got)
	}
}

func TestIssuerConcurrentIssue(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), "", nil, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := issuer.Issue("u1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Issue failed: %v", err)
	}
}
