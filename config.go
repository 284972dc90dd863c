package scoped

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/iAmLakshya/supabase-scoped-clients/token"
)

// Environment variables consumed by [LoadConfig].
const (
	EnvURL       = "SUPABASE_URL"
	EnvKey       = "SUPABASE_KEY"
	EnvJWTSecret = "SUPABASE_JWT_SECRET"
)

// Defaults applied by [NewBuilder] and [NewRemote].
const (
	// DefaultValidity is the token lifetime when none is configured.
	DefaultValidity = time.Hour
	// DefaultRefreshThreshold is how close to expiry a token may get before
	// the next access triggers a refresh.
	DefaultRefreshThreshold = 60 * time.Second
)

// Config bundles the three values required to mint and use scoped tokens.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable for the lifetime of any session built from them.
type Config struct {
	// URL is the Supabase project URL, e.g. https://abc.supabase.co.
	URL string
	// Key is the project API key sent alongside every data-plane request.
	Key string
	// JWTSecret is the shared HS256 signing secret. Must be at least
	// [token.MinSecretLen] bytes.
	JWTSecret string
}

// LoadConfig reads the configuration from the SUPABASE_URL, SUPABASE_KEY and
// SUPABASE_JWT_SECRET environment variables and validates it.
func LoadConfig() (Config, error) {
	cfg := Config{
		URL:       os.Getenv(EnvURL),
		Key:       os.Getenv(EnvKey),
		JWTSecret: os.Getenv(EnvJWTSecret),
	}

	if strings.TrimSpace(cfg.URL) == "" {
		return Config{}, &ConfigurationError{Field: "supabase_url", Reason: EnvURL + " is not set"}
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return Config{}, &ConfigurationError{Field: "supabase_key", Reason: EnvKey + " is not set"}
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, &ConfigurationError{Field: "supabase_jwt_secret", Reason: EnvJWTSecret + " is not set"}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for structural problems. It is called by
// [LoadConfig] and by [Builder.Build] for programmatically supplied configs.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: "supabase_url", Reason: "must be a valid http(s) URL"}
	}

	if strings.TrimSpace(c.Key) == "" {
		return &ConfigurationError{Field: "supabase_key", Reason: "cannot be empty"}
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		return &ConfigurationError{Field: "supabase_jwt_secret", Reason: "cannot be empty"}
	}
	if len(c.JWTSecret) < token.MinSecretLen {
		return &ConfigurationError{Field: "supabase_jwt_secret", Reason: "shorter than the minimum signing secret length"}
	}

	return nil
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher. When Enabled is false no
// dispatcher goroutine is started and emission is a no-op.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics system. When Enabled is
// false all counter operations are no-ops.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
ISSUE THROTTLE CONFIG
====================================
*/

// ThrottleConfig tunes the optional Redis-backed issuance throttle.
// It is active only when a Redis client is supplied via [Builder.WithRedis].
type ThrottleConfig struct {
	// MaxIssues is the mint budget per subject within Window.
	MaxIssues int
	// Window is the fixed-window duration for the budget.
	Window time.Duration
}

func defaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MaxIssues: 30,
		Window:    time.Minute,
	}
}
