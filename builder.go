package scoped

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iAmLakshya/supabase-scoped-clients/internal/audit"
	"github.com/iAmLakshya/supabase-scoped-clients/internal/rate"
	"github.com/iAmLakshya/supabase-scoped-clients/token"
)

// Builder configures and creates a [Client]. All With methods return the
// builder for chaining; Build may be called once.
type Builder struct {
	subject string

	config    Config
	configSet bool

	role      string
	validity  time.Duration
	custom    map[string]any
	threshold time.Duration

	remote RemoteClient
	redis  *redis.Client

	throttle  ThrottleConfig
	auditCfg  AuditConfig
	auditSink AuditSink
	metrics   MetricsConfig

	now func() time.Time

	built bool
}

// NewBuilder creates a Builder for the given subject with the original
// defaults: role "authenticated", one hour validity, 60 second refresh
// threshold.
func NewBuilder(subject string) *Builder {
	return &Builder{
		subject:   subject,
		role:      token.DefaultRole,
		validity:  DefaultValidity,
		threshold: DefaultRefreshThreshold,
		throttle:  defaultThrottleConfig(),
		auditCfg: AuditConfig{
			BufferSize: 64,
		},
	}
}

// WithConfig supplies the configuration explicitly instead of loading it
// from the environment during Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	b.configSet = true
	return b
}

// WithRole sets the Supabase role embedded in minted tokens.
func (b *Builder) WithRole(role string) *Builder {
	b.role = role
	return b
}

// WithExpiry sets the token validity duration.
func (b *Builder) WithExpiry(validity time.Duration) *Builder {
	b.validity = validity
	return b
}

// WithClaims sets custom claims merged into every minted token. Keys that
// collide with issuer-owned claims are rejected at Build time.
func (b *Builder) WithClaims(claims map[string]any) *Builder {
	b.custom = claims
	return b
}

// WithRefreshThreshold sets how close to expiry a token may get before the
// next access triggers a refresh.
func (b *Builder) WithRefreshThreshold(threshold time.Duration) *Builder {
	b.threshold = threshold
	return b
}

// WithRemote supplies the remote client the facade wraps. When omitted a
// [HeaderRemote] is created from the configuration.
func (b *Builder) WithRemote(remote RemoteClient) *Builder {
	b.remote = remote
	return b
}

// WithRedis enables the per-subject issuance throttle backed by the given
// Redis client.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithIssueThrottle tunes the issuance throttle. Effective only together
// with WithRedis.
func (b *Builder) WithIssueThrottle(cfg ThrottleConfig) *Builder {
	b.throttle = cfg
	return b
}

// WithAuditSink enables async audit dispatch to the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.auditCfg.Enabled = true
	return b
}

// WithAuditConfig overrides dispatcher buffering behavior.
func (b *Builder) WithAuditConfig(cfg AuditConfig) *Builder {
	b.auditCfg = cfg
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the issue-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock injects the time source used for staleness checks and claim
// timestamps. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, mints the initial token, and returns a
// ready [Client]. The context covers the initial issuance (the optional
// throttle performs one Redis round-trip).
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if !b.configSet {
		loaded, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if b.threshold < 0 || b.threshold >= b.validity {
		return nil, ErrRefreshThresholdInvalid
	}

	issuer, err := NewIssuer(cfg, b.role, b.custom, b.validity)
	if err != nil {
		return nil, err
	}
	if b.now != nil {
		issuer.now = b.now
	}

	// Reject reserved custom claims at Build time rather than on first mint.
	if _, err := token.BuildClaims("builder-probe", b.role, b.custom, time.Now(), b.validity); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if b.redis != nil {
		limiter = rate.New(b.redis, rate.Config{
			MaxIssues: b.throttle.MaxIssues,
			Window:    b.throttle.Window,
		})
	}

	metrics := NewMetrics(b.metrics)
	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.auditCfg.Enabled,
		BufferSize: b.auditCfg.BufferSize,
		DropIfFull: b.auditCfg.DropIfFull,
	}, b.auditSink)

	session, err := newSession(ctx, issuer, b.subject, b.threshold, limiter, metrics, dispatcher, b.now)
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	remote := b.remote
	if remote == nil {
		remote = NewHeaderRemote(cfg)
	}

	b.built = true

	return &Client{
		session: session,
		remote:  remote,
		audit:   dispatcher,
		metrics: metrics,
	}, nil
}
